package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	infraNeo4j "github.com/turtacn/HyperBlend/internal/infrastructure/database/neo4j"
	"github.com/turtacn/HyperBlend/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/graph"
)

type GraphRepoTestSuite struct {
	suite.Suite
	exec *MockExecutor
	repo GraphRepository
	ctx  context.Context
}

func (s *GraphRepoTestSuite) SetupTest() {
	s.exec = NewMockExecutor()
	s.repo = NewGraphRepository(s.exec, logging.NewNopLogger())
	s.ctx = context.Background()
}

func nodeRow(id, name, typ string) map[string]any {
	return map[string]any{"id": id, "name": name, "type": typ}
}

func (s *GraphRepoTestSuite) TestStatistics() {
	s.exec.Tx.OnCypher("count(*) AS count", func(map[string]any) infraNeo4j.Result {
		return Rows(
			NewRecord("label", "Molecule", "count", int64(3)),
			NewRecord("label", "Effect", "count", int64(1)),
		)
	})
	stats, err := s.repo.Statistics(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, stats.Molecules)
	s.Equal(0, stats.Targets)
	s.Equal(1, stats.Effects)
}

func (s *GraphRepoTestSuite) TestGraph_NodesAndLinks() {
	var linkIDs []string
	s.exec.Tx.OnCypher("molecular_weight AS molecular_weight", func(p map[string]any) infraNeo4j.Result {
		s.Equal("", p["q"])
		return Rows(
			NewRecord("id", "M-1", "name", "Psilocin", "type", "Molecule", "description", nil,
				"smiles", "CN(C)CCc1c[nH]c2cccc(O)c12", "formula", "C12H16N2O",
				"molecular_weight", 204.27, "category", nil),
			NewRecord("id", "T-1", "name", "5-HT2A", "type", "Target", "description", "receptor",
				"smiles", nil, "formula", nil, "molecular_weight", nil, "category", nil),
		)
	})
	s.exec.Tx.OnCypher("MATCH (a)-[rel]->(b)", func(p map[string]any) infraNeo4j.Result {
		linkIDs = p["ids"].([]string)
		return Rows(NewRecord("source", "M-1", "target", "T-1", "type", "BINDS_TO",
			"activity_type", "agonist", "activity_value", int64(6), "activity_unit", "pKi",
			"confidence_score", nil))
	})

	data, err := s.repo.Graph(s.ctx, "")
	s.Require().NoError(err)
	s.Equal([]string{"M-1", "T-1"}, linkIDs)
	s.Require().Len(data.Nodes, 2)
	s.Equal(graph.NodeMolecule, data.Nodes[0].Type)
	s.Require().NotNil(data.Nodes[0].MolecularWeight)
	s.Equal(204.27, *data.Nodes[0].MolecularWeight)
	s.Require().Len(data.Links, 1)
	s.Equal(graph.ActivityAgonist, data.Links[0].ActivityType)
	s.Equal(6.0, *data.Links[0].ActivityValue)
	s.Nil(data.Links[0].ConfidenceScore)
	s.Equal(1, data.Stats.Molecules)
	s.Equal(1, data.Stats.Targets)
}

func (s *GraphRepoTestSuite) TestGraph_QueryIncludesNeighbours() {
	s.exec.Tx.OnCypher("OPTIONAL MATCH (n)--(m)", func(p map[string]any) infraNeo4j.Result {
		s.Equal("psilo", p["q"])
		return Rows()
	})
	s.exec.Tx.OnCypher("MATCH (a)-[rel]->(b)", func(map[string]any) infraNeo4j.Result { return Rows() })

	data, err := s.repo.Graph(s.ctx, " Psilo ")
	s.Require().NoError(err)
	s.Empty(data.Nodes)
	s.NotNil(data.Links)
}

func (s *GraphRepoTestSuite) TestNode_DetailWithRelated() {
	s.exec.Tx.OnCypher("properties(x) AS props", func(p map[string]any) infraNeo4j.Result {
		s.Equal("66", p["id"])
		return Rows(NewRecord("id", "M-1", "name", "Psilocin", "type", "Molecule",
			"props", map[string]any{"id": "M-1", "name": "Psilocin", "formula": "C12H16N2O", "properties_json": "{}"},
			"refs", []any{map[string]any{"id": "T-1", "name": "5-HT2A", "label": "Target", "relationship": "BINDS_TO", "activity": "agonist"}}))
	})

	detail, err := s.repo.Node(s.ctx, "66")
	s.Require().NoError(err)
	s.Equal("M-1", detail.ID)
	s.Equal(map[string]interface{}{"formula": "C12H16N2O"}, detail.Properties)
	s.Equal([]graph.RelatedNode{{ID: "T-1", Name: "5-HT2A", Type: "Target", Relationship: "BINDS_TO", Activity: "agonist"}}, detail.RelatedNodes)
}

func (s *GraphRepoTestSuite) TestNode_NotFound() {
	s.exec.Tx.OnCypher("properties(x) AS props", func(map[string]any) infraNeo4j.Result { return Rows() })
	_, err := s.repo.Node(s.ctx, "nope")
	s.True(errors.IsCode(err, errors.ErrCodeNodeNotFound))
}

func (s *GraphRepoTestSuite) TestMigrateMoleculeIDs() {
	var rows []map[string]any
	s.exec.Tx.OnCypher("RETURN elementId(m) AS eid", func(map[string]any) infraNeo4j.Result {
		return Rows(
			NewRecord("eid", "4:a:1", "id", "M-1"),
			NewRecord("eid", "4:a:2", "id", "psilocybin"),
			NewRecord("eid", "4:a:3", "id", nil),
		)
	})
	s.exec.Tx.OnCypher("UNWIND $rows AS row", func(p map[string]any) infraNeo4j.Result {
		rows = p["rows"].([]map[string]any)
		return Rows()
	})

	migrated, total, err := s.repo.MigrateMoleculeIDs(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, migrated)
	s.Equal(3, total)
	s.Require().Len(rows, 2)
	s.Equal(map[string]any{"eid": "4:a:2", "id": "M-2", "previous": "psilocybin"}, rows[0])
	s.Equal(map[string]any{"eid": "4:a:3", "id": "M-3", "previous": "4:a:3"}, rows[1])
}

func (s *GraphRepoTestSuite) TestMigrateMoleculeIDs_NothingToDo() {
	s.exec.Tx.OnCypher("RETURN elementId(m) AS eid", func(map[string]any) infraNeo4j.Result {
		return Rows(NewRecord("eid", "4:a:1", "id", "M-1"))
	})
	migrated, total, err := s.repo.MigrateMoleculeIDs(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, migrated)
	s.Equal(1, total)
}

func TestGraphRepoTestSuite(t *testing.T) {
	suite.Run(t, new(GraphRepoTestSuite))
}
