package cli

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
	"github.com/turtacn/HyperBlend/pkg/types/graph"
)

// EntityCommandsSuite drives the client commands against a stub API.
type EntityCommandsSuite struct {
	suite.Suite

	server   *httptest.Server
	jobPolls atomic.Int32

	mu          sync.Mutex
	enrichBody  enrichment.Request
	deletedPath string
}

func TestEntityCommandsSuite(t *testing.T) {
	suite.Run(t, new(EntityCommandsSuite))
}

func (s *EntityCommandsSuite) SetupTest() {
	s.jobPolls.Store(0)
	s.enrichBody = enrichment.Request{}
	s.deletedPath = ""

	writeJSON := func(w http.ResponseWriter, status int, body string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/molecules", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "none" {
			writeJSON(w, http.StatusOK, `[]`)
			return
		}
		writeJSON(w, http.StatusOK, `[{"id":"M-1","name":"Caffeine","description":"A central nervous system stimulant"},{"id":"M-12","name":"Theobromine"}]`)
	})
	mux.HandleFunc("GET /api/molecules/lookup", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"name":"`+r.URL.Query().Get("value")+`","formula":"C8H10N4O2","pubchem_cid":"2519"}`)
	})
	mux.HandleFunc("GET /api/molecules/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "M-1" {
			writeJSON(w, http.StatusNotFound, `{"error":"molecule not found"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"id":"M-1","name":"Caffeine","pubchem_cid":"2519"}`)
	})
	mux.HandleFunc("POST /api/molecules/{id}/enrich", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		_ = json.NewDecoder(r.Body).Decode(&s.enrichBody)
		s.mu.Unlock()
		writeJSON(w, http.StatusAccepted, `{"job_id":"job-1"}`)
	})
	mux.HandleFunc("POST /api/targets/{id}/enrich", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"properties":{"gene":"ADORA2A"}},"sources":[{"name":"UniProt","url":"https://www.uniprot.org"}]}`)
	})
	mux.HandleFunc("GET /api/jobs/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "job-1" {
			writeJSON(w, http.StatusNotFound, `{"error":"job not found"}`)
			return
		}
		status := "running"
		if s.jobPolls.Add(1) >= 2 {
			status = "completed"
		}
		writeJSON(w, http.StatusOK, `{"job":{"id":"job-1","status":"`+status+`","entity":"molecule","entity_id":"M-1","created_at":"2026-01-02T03:04:05Z","updated_at":"2026-01-02T03:04:06Z"}}`)
	})
	mux.HandleFunc("DELETE /api/targets/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.deletedPath = r.URL.Path
		s.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /api/targets/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"error":"target not found","details":"no target with id `+r.PathValue("id")+`"}`)
	})
	mux.HandleFunc("GET /api/statistics", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"molecule":3,"target":2,"organism":1,"effect":0}`)
	})
	mux.HandleFunc("GET /api/graph", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"nodes":[{"id":"M-1","name":"Caffeine","type":"Molecule"},{"id":"T-1","name":"ADORA2A","type":"Target"}],`+
			`"links":[{"source":"M-1","target":"T-1","type":"INTERACTS_WITH","activity_type":"antagonist"}],"stats":{"molecules":1,"targets":1}}`)
	})
	mux.HandleFunc("POST /api/molecules/migrate_ids", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"migrated":2,"total":5}`)
	})

	s.server = httptest.NewServer(mux)
}

func (s *EntityCommandsSuite) TearDownTest() {
	s.server.Close()
}

func (s *EntityCommandsSuite) run(args ...string) (string, string, error) {
	return runCLI(s.T(), append([]string{"--server", s.server.URL + "/api"}, args...)...)
}

func (s *EntityCommandsSuite) TestEntityList_JSON() {
	stdout, _, err := s.run("entity", "list", "molecules")
	s.Require().NoError(err)

	var items []map[string]interface{}
	s.Require().NoError(json.Unmarshal([]byte(stdout), &items))
	s.Require().Len(items, 2)
	s.Equal("M-1", items[0]["id"])
	s.Equal("Theobromine", items[1]["name"])
}

func (s *EntityCommandsSuite) TestEntityList_EmptyIsArray() {
	stdout, _, err := s.run("entity", "list", "molecule", "-q", "none")
	s.Require().NoError(err)
	s.JSONEq(`[]`, stdout)
}

func (s *EntityCommandsSuite) TestEntityList_Table() {
	stdout, _, err := s.run("-o", "table", "entity", "list", "molecule")
	s.Require().NoError(err)

	lines := strings.Split(strings.TrimRight(stdout, "\n"), "\n")
	s.Require().Len(lines, 4)
	s.True(strings.HasPrefix(lines[0], "ID"))
	s.Contains(lines[0], "DESCRIPTION")
	s.Contains(lines[2], "Caffeine")
	s.Contains(lines[3], "M-12")
}

func (s *EntityCommandsSuite) TestEntityList_UnknownKind() {
	_, _, err := s.run("entity", "list", "proteins")
	s.Require().Error(err)
	s.Contains(err.Error(), "invalid kind argument")
}

func (s *EntityCommandsSuite) TestEntityGet() {
	stdout, _, err := s.run("entity", "get", "molecule", "M-1")
	s.Require().NoError(err)

	var m map[string]interface{}
	s.Require().NoError(json.Unmarshal([]byte(stdout), &m))
	s.Equal("Caffeine", m["name"])
	s.Equal("2519", m["pubchem_cid"])
}

func (s *EntityCommandsSuite) TestEntityGet_NotFound() {
	_, _, err := s.run("entity", "get", "target", "T-404")
	s.Require().Error(err)
	s.Contains(err.Error(), "target not found")
}

func (s *EntityCommandsSuite) TestEntityDelete() {
	_, stderr, err := s.run("entity", "delete", "target", "T-1")
	s.Require().NoError(err)
	s.Contains(stderr, "deleted target T-1")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Equal("/api/targets/T-1", s.deletedPath)
}

func (s *EntityCommandsSuite) TestEnrich_AsyncPrintsJobID() {
	stdout, _, err := s.run("enrich", "molecule", "M-1")
	s.Require().NoError(err)
	s.JSONEq(`{"job_id":"job-1"}`, stdout)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Require().NotEmpty(s.enrichBody.Identifiers)
	s.Equal("pubchem_cid", s.enrichBody.Identifiers[0].Type)
	s.Equal("2519", s.enrichBody.Identifiers[0].Value)
}

func (s *EntityCommandsSuite) TestEnrich_ExplicitIdentifier() {
	_, _, err := s.run("enrich", "molecule", "M-1", "--type", "name", "--value", "caffeine")
	s.Require().NoError(err)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Require().Len(s.enrichBody.Identifiers, 1)
	s.Equal("name", s.enrichBody.Identifiers[0].Type)
	s.Equal("caffeine", s.enrichBody.Identifiers[0].Value)
}

func (s *EntityCommandsSuite) TestEnrich_TypeWithoutValue() {
	_, _, err := s.run("enrich", "molecule", "M-1", "--type", "name")
	s.Require().Error(err)
	s.Contains(err.Error(), "--type and --value")
}

func (s *EntityCommandsSuite) TestEnrich_WaitPollsUntilTerminal() {
	stdout, _, err := s.run("enrich", "molecule", "M-1", "--wait", "--poll-interval", "1ms", "--max-polls", "5")
	s.Require().NoError(err)

	var job enrichment.Job
	s.Require().NoError(json.Unmarshal([]byte(stdout), &job))
	s.Equal(enrichment.JobCompleted, job.Status)
	s.EqualValues(2, s.jobPolls.Load())
}

func (s *EntityCommandsSuite) TestEnrich_WaitGivesUp() {
	_, _, err := s.run("enrich", "molecule", "M-1", "--wait", "--poll-interval", "1ms", "--max-polls", "1")
	s.Require().Error(err)
	s.Contains(err.Error(), "still running after 1 polls")
}

func (s *EntityCommandsSuite) TestEnrich_SyncResult() {
	stdout, _, err := s.run("enrich", "target", "T-1", "--type", "uniprot_id", "--value", "P29274")
	s.Require().NoError(err)

	var res enrichment.Result
	s.Require().NoError(json.Unmarshal([]byte(stdout), &res))
	s.True(res.Success)
	s.Equal("ADORA2A", res.Data.Properties["gene"])
	s.Require().Len(res.Sources, 1)
	s.Equal("UniProt", res.Sources[0].Name)
}

func (s *EntityCommandsSuite) TestStats_Table() {
	stdout, _, err := s.run("-o", "table", "stats")
	s.Require().NoError(err)
	s.Contains(stdout, "molecule  3")
	s.Contains(stdout, "total     6")
}

func (s *EntityCommandsSuite) TestStats_JSONKeepsSingularKeys() {
	stdout, _, err := s.run("stats")
	s.Require().NoError(err)
	s.JSONEq(`{"molecule":3,"target":2,"organism":1,"effect":0}`, stdout)
}

func (s *EntityCommandsSuite) TestGraphExport() {
	stdout, _, err := s.run("graph", "export")
	s.Require().NoError(err)

	var data graph.Data
	s.Require().NoError(json.Unmarshal([]byte(stdout), &data))
	s.Len(data.Nodes, 2)
	s.Require().Len(data.Links, 1)
	s.Equal(graph.ActivityAntagonist, data.Links[0].ActivityType)
}

func (s *EntityCommandsSuite) TestGraphExport_TableCountsLinks() {
	stdout, _, err := s.run("-o", "table", "graph", "export")
	s.Require().NoError(err)
	s.Contains(stdout, "LINKS")
	s.Contains(stdout, "ADORA2A")
}

func (s *EntityCommandsSuite) TestMoleculesLookup() {
	stdout, _, err := s.run("molecules", "lookup", "--value", "caffeine")
	s.Require().NoError(err)

	var m map[string]interface{}
	s.Require().NoError(json.Unmarshal([]byte(stdout), &m))
	s.Equal("caffeine", m["name"])
	s.Equal("C8H10N4O2", m["formula"])
}

func (s *EntityCommandsSuite) TestMoleculesLookup_RequiresValue() {
	_, _, err := s.run("molecules", "lookup")
	s.Error(err)
}

func (s *EntityCommandsSuite) TestMoleculesMigrateIDs() {
	stdout, _, err := s.run("molecules", "migrate-ids")
	s.Require().NoError(err)
	s.JSONEq(`{"migrated":2,"total":5}`, stdout)
}

func TestStatsView_Rows(t *testing.T) {
	v := statsView{}
	v.Molecules, v.Effects = 4, 1

	rows := v.TableRows()
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"molecule", "4"}, rows[0])
	assert.Equal(t, []string{"total", "5"}, rows[4])
}
