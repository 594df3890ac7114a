package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/turtacn/HyperBlend/pkg/client"
	"github.com/turtacn/HyperBlend/pkg/errors"
	"github.com/turtacn/HyperBlend/pkg/types/common"
	"github.com/turtacn/HyperBlend/pkg/types/enrichment"
	"github.com/turtacn/HyperBlend/pkg/types/entity"
	"github.com/turtacn/HyperBlend/pkg/types/graph"
)

// ─────────────────────────────────────────────────────────────────────────────
// Table views
// ─────────────────────────────────────────────────────────────────────────────

const descriptionWidth = 48

// entityList renders any mix of entities as ID/name/description rows.
type entityList []entity.Entity

func (l entityList) TableHeaders() []string { return []string{"ID", "NAME", "DESCRIPTION"} }

func (l entityList) TableRows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, e := range l {
		rows = append(rows, []string{e.GetID(), e.GetName(), truncate(e.GetDescription(), descriptionWidth)})
	}
	return rows
}

func toEntityList[T entity.Entity](items []T) entityList {
	out := make(entityList, 0, len(items))
	for _, it := range items {
		out = append(out, it)
	}
	return out
}

// statsView prints statistics as kind/count rows.
type statsView struct{ entity.Statistics }

func (v statsView) TableHeaders() []string { return []string{"KIND", "COUNT"} }

func (v statsView) TableRows() [][]string {
	rows := make([][]string, 0, len(common.AllKinds)+1)
	for _, k := range common.AllKinds {
		rows = append(rows, []string{string(k), strconv.Itoa(v.Count(k))})
	}
	return append(rows, []string{"total", strconv.Itoa(v.Total())})
}

// graphView prints the node list of a graph export.
type graphView struct{ graph.Data }

func (v graphView) TableHeaders() []string { return []string{"ID", "TYPE", "NAME", "LINKS"} }

func (v graphView) TableRows() [][]string {
	degree := make(map[string]int, len(v.Nodes))
	for _, l := range v.Links {
		degree[l.Source]++
		degree[l.Target]++
	}
	rows := make([][]string, 0, len(v.Nodes))
	for _, n := range v.Nodes {
		rows = append(rows, []string{n.ID, string(n.Type), n.Name, strconv.Itoa(degree[n.ID])})
	}
	return rows
}

// jobView prints a job as one row.
type jobView struct{ enrichment.Job }

func (v jobView) TableHeaders() []string {
	return []string{"JOB", "STATUS", "ENTITY", "UPDATED", "ERROR"}
}

func (v jobView) TableRows() [][]string {
	return [][]string{{
		v.ID, string(v.Status), string(v.Entity) + "/" + v.EntityID,
		v.UpdatedAt.Format(time.RFC3339), v.Error,
	}}
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// ─────────────────────────────────────────────────────────────────────────────
// Kind dispatch
// ─────────────────────────────────────────────────────────────────────────────

func listEntities(ctx context.Context, c *client.Client, kind common.Kind, query string) (entityList, error) {
	switch kind {
	case common.KindMolecule:
		items, err := c.Molecules().List(ctx, query)
		return toEntityList(items), err
	case common.KindTarget:
		items, err := c.Targets().List(ctx, query)
		return toEntityList(items), err
	case common.KindOrganism:
		items, err := c.Organisms().List(ctx, query)
		return toEntityList(items), err
	case common.KindEffect:
		items, err := c.Effects().List(ctx, query)
		return toEntityList(items), err
	}
	return nil, unknownKind(kind)
}

func getEntity(ctx context.Context, c *client.Client, kind common.Kind, id string) (entity.Entity, error) {
	switch kind {
	case common.KindMolecule:
		return c.Molecules().Get(ctx, id)
	case common.KindTarget:
		return c.Targets().Get(ctx, id)
	case common.KindOrganism:
		return c.Organisms().Get(ctx, id)
	case common.KindEffect:
		return c.Effects().Get(ctx, id)
	}
	return nil, unknownKind(kind)
}

func deleteEntity(ctx context.Context, c *client.Client, kind common.Kind, id string) error {
	switch kind {
	case common.KindMolecule:
		return c.Molecules().Delete(ctx, id)
	case common.KindTarget:
		return c.Targets().Delete(ctx, id)
	case common.KindOrganism:
		return c.Organisms().Delete(ctx, id)
	case common.KindEffect:
		return c.Effects().Delete(ctx, id)
	}
	return unknownKind(kind)
}

func enrichEntity(ctx context.Context, c *client.Client, kind common.Kind, id string, req enrichment.Request) (enrichment.Outcome, error) {
	switch kind {
	case common.KindMolecule:
		return c.EnrichMolecule(ctx, id, req)
	case common.KindTarget:
		return c.EnrichTarget(ctx, id, req)
	case common.KindOrganism:
		return c.EnrichOrganism(ctx, id, req)
	case common.KindEffect:
		return c.EnrichEffect(ctx, id, req)
	}
	return enrichment.Outcome{}, unknownKind(kind)
}

func unknownKind(kind common.Kind) error {
	return errors.New(errors.ErrCodeUnknownEntity, fmt.Sprintf("unknown entity kind %q", kind))
}

func parseKindArg(s string) (common.Kind, error) {
	k, err := common.ParseKind(s)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeUnknownEntity, "invalid kind argument")
	}
	return k, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// entity
// ─────────────────────────────────────────────────────────────────────────────

func newEntityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "entity",
		Aliases: []string{"entities"},
		Short:   "List, show and delete curated entities",
	}
	cmd.AddCommand(newEntityListCmd(), newEntityGetCmd(), newEntityDeleteCmd())
	return cmd
}

func newEntityListCmd() *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "list <kind>",
		Short: "List molecules, targets, organisms or effects",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			kind, err := parseKindArg(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.callContext(cmd)
			defer cancel()

			items, err := listEntities(ctx, cliCtx.Client, kind, query)
			if err != nil {
				return err
			}
			return PrintResult(cmd, items)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "search text")
	return cmd
}

func newEntityGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <kind> <id>",
		Short: "Show one entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			kind, err := parseKindArg(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.callContext(cmd)
			defer cancel()

			e, err := getEntity(ctx, cliCtx.Client, kind, args[1])
			if err != nil {
				return err
			}
			if strings.EqualFold(cliCtx.OutputFormat, FormatTable) {
				return PrintResult(cmd, entityList{e})
			}
			return PrintResult(cmd, e)
		},
	}
}

func newEntityDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <kind> <id>",
		Short: "Delete an entity and its relationships",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			kind, err := parseKindArg(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.callContext(cmd)
			defer cancel()

			if err := deleteEntity(ctx, cliCtx.Client, kind, args[1]); err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("deleted %s %s", kind, args[1]))
			return nil
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// enrich
// ─────────────────────────────────────────────────────────────────────────────

type identified interface {
	Identifiers() []common.Identifier
}

func newEnrichCmd() *cobra.Command {
	var (
		idType       string
		idValue      string
		wait         bool
		pollInterval time.Duration
		maxPolls     int
	)
	cmd := &cobra.Command{
		Use:   "enrich <kind> <id>",
		Short: "Enrich an entity from external databases",
		Long: "Submits an enrichment request. Without --type/--value the entity's own\n" +
			"identifiers are used. In async mode the job ID is printed unless --wait is set.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			kind, err := parseKindArg(args[0])
			if err != nil {
				return err
			}
			if (idType == "") != (idValue == "") {
				return errors.InvalidParam("--type and --value must be given together")
			}

			ctx, cancel := cliCtx.callContext(cmd)
			defer cancel()

			req, err := buildEnrichRequest(ctx, cliCtx.Client, kind, args[1], idType, idValue)
			if err != nil {
				return err
			}
			outcome, err := enrichEntity(ctx, cliCtx.Client, kind, args[1], req)
			if err != nil {
				return err
			}
			if !outcome.IsJob() {
				return PrintResult(cmd, outcome.Result)
			}
			if !wait {
				return PrintResult(cmd, map[string]string{"job_id": outcome.JobID})
			}

			if pollInterval <= 0 {
				pollInterval = cliCtx.Config.UI.PollInterval
			}
			if maxPolls <= 0 {
				maxPolls = cliCtx.Config.UI.PollMaxAttempts
			}
			job, err := waitForJob(cmd.Context(), cliCtx.Client, outcome.JobID, pollInterval, maxPolls)
			if err != nil {
				return err
			}
			return PrintResult(cmd, jobView{job})
		},
	}
	f := cmd.Flags()
	f.StringVar(&idType, "type", "", "identifier type, e.g. pubchem_cid")
	f.StringVar(&idValue, "value", "", "identifier value")
	f.BoolVarP(&wait, "wait", "w", false, "poll an async job until it finishes")
	f.DurationVar(&pollInterval, "poll-interval", 0, "job poll interval (default ui.poll_interval)")
	f.IntVar(&maxPolls, "max-polls", 0, "maximum job polls (default ui.poll_max_attempts)")
	return cmd
}

func buildEnrichRequest(ctx context.Context, c *client.Client, kind common.Kind, id, idType, idValue string) (enrichment.Request, error) {
	if idType != "" {
		return enrichment.Request{Identifiers: []common.Identifier{{Type: idType, Value: idValue}}}, nil
	}
	e, err := getEntity(ctx, c, kind, id)
	if err != nil {
		return enrichment.Request{}, err
	}
	req := enrichment.Request{OriginalID: e.GetOriginalID()}
	if withIDs, ok := e.(identified); ok {
		req.Identifiers = withIDs.Identifiers()
	}
	return req, nil
}

// waitForJob polls until the job is terminal or maxPolls is exhausted.
func waitForJob(ctx context.Context, c *client.Client, jobID string, interval time.Duration, maxPolls int) (enrichment.Job, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		job, err := c.GetJob(ctx, jobID)
		if err != nil {
			return enrichment.Job{}, err
		}
		if job.Status.IsTerminal() {
			return job, nil
		}
		if attempt >= maxPolls {
			return job, errors.Newf(errors.ErrCodeServiceUnavailable,
				"job %s still %s after %d polls", jobID, job.Status, attempt)
		}
		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// stats, graph
// ─────────────────────────────────────────────────────────────────────────────

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show entity counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.callContext(cmd)
			defer cancel()

			stats, err := cliCtx.Client.GetStatistics(ctx)
			if err != nil {
				return err
			}
			return PrintResult(cmd, statsView{stats})
		},
	}
}

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Inspect the knowledge graph",
	}

	var query string
	export := &cobra.Command{
		Use:   "export",
		Short: "Print the graph payload, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.callContext(cmd)
			defer cancel()

			data, err := cliCtx.Client.GetGraph(ctx, query)
			if err != nil {
				return err
			}
			if strings.EqualFold(cliCtx.OutputFormat, FormatTable) {
				return PrintResult(cmd, graphView{data})
			}
			return PrintResult(cmd, data)
		},
	}
	export.Flags().StringVarP(&query, "query", "q", "", "search text")

	node := &cobra.Command{
		Use:   "node <id>",
		Short: "Show a node with its neighbours",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.callContext(cmd)
			defer cancel()

			detail, err := cliCtx.Client.GetNode(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, detail)
		},
	}

	cmd.AddCommand(export, node)
	return cmd
}

// ─────────────────────────────────────────────────────────────────────────────
// molecules
// ─────────────────────────────────────────────────────────────────────────────

func newMoleculesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "molecules",
		Aliases: []string{"molecule"},
		Short:   "Molecule-specific operations",
	}

	var idType, idValue string
	lookup := &cobra.Command{
		Use:   "lookup",
		Short: "Preview a molecule from PubChem without saving it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.callContext(cmd)
			defer cancel()

			m, err := cliCtx.Client.Molecules().Preview(ctx, common.Identifier{Type: idType, Value: idValue})
			if err != nil {
				return err
			}
			if strings.EqualFold(cliCtx.OutputFormat, FormatTable) {
				return PrintResult(cmd, entityList{m})
			}
			return PrintResult(cmd, m)
		},
	}
	lookup.Flags().StringVar(&idType, "type", "name", "identifier type (name, pubchem_cid, smiles, inchikey)")
	lookup.Flags().StringVar(&idValue, "value", "", "identifier value")
	_ = lookup.MarkFlagRequired("value")

	migrate := &cobra.Command{
		Use:   "migrate-ids",
		Short: "Rewrite legacy molecule IDs to the canonical M-<n> form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := cliCtx.callContext(cmd)
			defer cancel()

			res, err := cliCtx.Client.Molecules().MigrateIDs(ctx)
			if err != nil {
				return err
			}
			return PrintResult(cmd, res)
		},
	}

	cmd.AddCommand(lookup, migrate)
	return cmd
}
