package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kart-io/memoryctl/internal/engine"
	"github.com/kart-io/memoryctl/internal/model"
	"github.com/kart-io/memoryctl/internal/tenant"
	"github.com/kart-io/memoryctl/pkg/validator"
)

// RememberRequest is the validated shape of a "remember" invocation before
// it is translated into an engine.RememberInput.
type RememberRequest struct {
	Content    string `json:"content" validate:"required,max=100000"`
	Gate       string `json:"gate" validate:"omitempty,oneof=behavioral relational epistemic promissory correction"`
	Person     string `json:"person" validate:"omitempty,max=200"`
	Project    string `json:"project" validate:"omitempty,max=200"`
	Visibility string `json:"visibility" validate:"omitempty,oneof=private team"`
}

// RuleRequest is the validated shape of a "rules add" invocation.
type RuleRequest struct {
	Scope       string `json:"scope" validate:"omitempty,max=200"`
	Condition   string `json:"condition" validate:"required,max=2000"`
	Enforcement string `json:"enforcement" validate:"required,oneof=suggest enforce block"`
}

// newCommands builds every memoryctl subcommand, each resolving the shared
// Runtime lazily through rb on first use.
func newCommands(rb *runtimeBuilder) []*cobra.Command {
	return []*cobra.Command{
		newRememberCommand(rb),
		newRecallCommand(rb),
		newGetCommand(rb),
		newListCommand(rb),
		newForgetCommand(rb),
		newPinCommand(rb),
		newUnpinCommand(rb),
		newUpdateCommand(rb),
		newScanCommand(rb),
		newReflectCommand(rb),
		newClassifyCommand(rb),
		newReclassifyCommand(rb),
		newEdgeCommand(rb),
		newRelatedCommand(rb),
		newIdentityCommand(rb),
		newRulesCommand(rb),
		newCheckpointCommand(rb),
		newEvaluateCommand(rb),
		newMigrateCommand(rb),
		newTeamMemoriesCommand(rb),
		newAuditCommand(rb),
	}
}

func newAuditCommand(rb *runtimeBuilder) *cobra.Command {
	var limit int64
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recent audit trail entries (requires --enable-audit)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			if rt.Audit == nil {
				return fmt.Errorf("audit log not enabled; rerun with --enable-audit")
			}
			entries, err := rt.Audit.Recent(cmd.Context(), rt.Tenant.UserID, limit)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", e.Timestamp.UTC().Format("2006-01-02T15:04:05Z"), e.Action, e.Detail)
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&limit, "limit", 20, "Maximum entries to list.")
	return cmd
}

func newRememberCommand(rb *runtimeBuilder) *cobra.Command {
	req := RememberRequest{}
	cmd := &cobra.Command{
		Use:   "remember",
		Short: "Write a new memory into the journal and index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if verrs := validator.StructWithLang(&req, validator.LangEN); verrs.HasErrors() {
				return verrs
			}
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			in := rememberInputFrom(req)
			if in.Visibility == model.VisibilityTeam {
				in.TeamID = rt.Tenant.TeamID
			}
			id, err := rt.Engine.Remember(cmd.Context(), rt.Tenant, in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Content, "content", "", "Memory content.")
	cmd.Flags().StringVar(&req.Gate, "gate", "", "Primary gate (behavioral, relational, epistemic, promissory, correction).")
	cmd.Flags().StringVar(&req.Person, "person", "", "Person this memory concerns, if any.")
	cmd.Flags().StringVar(&req.Project, "project", "", "Project this memory concerns, if any.")
	cmd.Flags().StringVar(&req.Visibility, "visibility", "", "private (default) or team.")
	return cmd
}

func rememberInputFrom(req RememberRequest) engine.RememberInput {
	return engine.RememberInput{
		Content:    req.Content,
		Gate:       req.Gate,
		Person:     req.Person,
		Project:    req.Project,
		Visibility: model.Visibility(req.Visibility),
	}
}

func newRecallCommand(rb *runtimeBuilder) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "recall",
		Short: "Retrieve memories relevant to a query",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			hits, err := rt.Engine.Recall(cmd.Context(), rt.Tenant, query)
			if err != nil {
				return err
			}
			for _, h := range hits {
				fmt.Fprintln(cmd.OutOrStdout(), h)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "Search text.")
	_ = cmd.MarkFlagRequired("query")
	return cmd
}

func newGetCommand(rb *runtimeBuilder) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Fetch a single memory by id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			mem, err := rt.Engine.GetMemory(cmd.Context(), rt.Tenant, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", mem)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Memory id.")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newListCommand(rb *runtimeBuilder) *cobra.Command {
	var opts tenant.FilterOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List memories in scope, optionally narrowed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			mems, err := rt.Engine.ListMemories(cmd.Context(), rt.Tenant, opts)
			if err != nil {
				return err
			}
			for _, m := range mems {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", m.ID, m.Gate, m.Content)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Gate, "gate", "", "Filter by gate.")
	cmd.Flags().StringVar(&opts.Person, "person", "", "Filter by person.")
	cmd.Flags().StringVar(&opts.Project, "project", "", "Filter by project.")
	cmd.Flags().StringVar(&opts.Visibility, "visibility", "", "Filter by visibility.")
	cmd.Flags().StringVar(&opts.Sensitivity, "sensitivity", "", "Filter by sensitivity.")
	cmd.Flags().StringVar(&opts.Date, "date", "", "Filter by date key.")
	return cmd
}

func newForgetCommand(rb *runtimeBuilder) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "forget",
		Short: "Delete a memory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			return rt.Engine.Forget(cmd.Context(), rt.Tenant, id)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Memory id.")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newPinCommand(rb *runtimeBuilder) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "pin",
		Short: "Pin a memory so decay never fades it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			return rt.Engine.Pin(cmd.Context(), rt.Tenant, id)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Memory id.")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newUnpinCommand(rb *runtimeBuilder) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "unpin",
		Short: "Unpin a memory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			return rt.Engine.Unpin(cmd.Context(), rt.Tenant, id)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Memory id.")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newUpdateCommand(rb *runtimeBuilder) *cobra.Command {
	var (
		id      string
		content string
		person  string
		project string
		pinned  bool
	)
	var contentSet, personSet, projectSet, pinnedSet bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Patch an existing memory's mutable fields",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			var upd engine.MemoryUpdate
			if contentSet = cmd.Flags().Changed("content"); contentSet {
				upd.Content = &content
			}
			if personSet = cmd.Flags().Changed("person"); personSet {
				upd.Person = &person
			}
			if projectSet = cmd.Flags().Changed("project"); projectSet {
				upd.Project = &project
			}
			if pinnedSet = cmd.Flags().Changed("pinned"); pinnedSet {
				upd.Pinned = &pinned
			}
			return rt.Engine.UpdateMemory(cmd.Context(), rt.Tenant, id, upd)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Memory id.")
	cmd.Flags().StringVar(&content, "content", "", "New content.")
	cmd.Flags().StringVar(&person, "person", "", "New person.")
	cmd.Flags().StringVar(&project, "project", "", "New project.")
	cmd.Flags().BoolVar(&pinned, "pinned", false, "New pinned state.")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newScanCommand(rb *runtimeBuilder) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Report memory counts grouped by gate and sensitivity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			report, err := rt.Engine.Scan(cmd.Context(), rt.Tenant, engine.ScanOptions{})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total=%d by_gate=%v by_sensitivity=%v\n",
				report.Total, report.ByGate, report.BySensitivity)
			return nil
		},
	}
}

func newReflectCommand(rb *runtimeBuilder) *cobra.Command {
	return &cobra.Command{
		Use:   "reflect",
		Short: "Consolidate the journal, prune fading memories, refresh identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			summary, err := rt.Engine.Reflect(cmd.Context(), rt.Tenant)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary)
			return nil
		},
	}
}

func newClassifyCommand(rb *runtimeBuilder) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify unclassified memories' sensitivity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			n, err := rt.Engine.Classify(cmd.Context(), rt.Tenant, force)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "classified %d\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Reclassify already-classified memories too.")
	return cmd
}

func newReclassifyCommand(rb *runtimeBuilder) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "reclassify",
		Short: "Reclassify a single memory's sensitivity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			sens, err := rt.Engine.Reclassify(cmd.Context(), rt.Tenant, id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sens)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Memory id.")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newEdgeCommand(rb *runtimeBuilder) *cobra.Command {
	var from, to, relation string
	cmd := &cobra.Command{
		Use:   "edge",
		Short: "Add a typed edge between two memories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			return rt.Engine.AddEdge(cmd.Context(), rt.Tenant, from, to, model.Relation(relation))
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Source memory id.")
	cmd.Flags().StringVar(&to, "to", "", "Target memory id.")
	cmd.Flags().StringVar(&relation, "relation", "", "CONTRADICTS or FOLLOWS.")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("relation")
	return cmd
}

func newRelatedCommand(rb *runtimeBuilder) *cobra.Command {
	var id string
	var depth int
	cmd := &cobra.Command{
		Use:   "related",
		Short: "Walk the graph from a memory up to depth hops",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			hops, err := rt.Engine.FindRelated(cmd.Context(), rt.Tenant, id, depth)
			if err != nil {
				return err
			}
			for _, h := range hops {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\n", h.Depth, h.Relation, h.ID, h.Content)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Starting memory id.")
	cmd.Flags().IntVar(&depth, "depth", 1, "Maximum hops to walk.")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newIdentityCommand(rb *runtimeBuilder) *cobra.Command {
	root := &cobra.Command{Use: "identity", Short: "Inspect or replace the tenant's identity card"}

	get := &cobra.Command{
		Use:   "get",
		Short: "Print the current identity card",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			card, err := rt.Engine.GetIdentity(cmd.Context(), rt.Tenant)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", card)
			return nil
		},
	}

	var person, project, content string
	set := &cobra.Command{
		Use:   "set",
		Short: "Replace the identity card",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			return rt.Engine.SetIdentity(cmd.Context(), rt.Tenant, &model.IdentityCard{
				Person:  person,
				Project: project,
				Content: content,
			})
		},
	}
	set.Flags().StringVar(&person, "person", "", "Identity person.")
	set.Flags().StringVar(&project, "project", "", "Identity project.")
	set.Flags().StringVar(&content, "content", "", "Identity prose content.")
	_ = set.MarkFlagRequired("content")

	root.AddCommand(get, set)
	return root
}

func newRulesCommand(rb *runtimeBuilder) *cobra.Command {
	root := &cobra.Command{Use: "rules", Short: "Manage per-tenant policy rules"}

	req := RuleRequest{}
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a new rule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if verrs := validator.StructWithLang(&req, validator.LangEN); verrs.HasErrors() {
				return verrs
			}
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			rule, err := rt.Engine.CreateRule(cmd.Context(), rt.Tenant, ruleInputFrom(req))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rule.RuleID)
			return nil
		},
	}
	add.Flags().StringVar(&req.Scope, "scope", "", "Rule scope (defaults to global).")
	add.Flags().StringVar(&req.Condition, "condition", "", "Rule condition text.")
	add.Flags().StringVar(&req.Enforcement, "enforcement", "", "suggest, enforce, or block.")

	list := &cobra.Command{
		Use:   "list",
		Short: "List every rule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			rules, err := rt.Engine.ListRules(cmd.Context(), rt.Tenant)
			if err != nil {
				return err
			}
			for _, r := range rules {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", r.RuleID, r.Scope, r.Enforcement, r.Condition)
			}
			return nil
		},
	}

	var updateID, updScope, updCondition, updEnforcement string
	update := &cobra.Command{
		Use:   "update",
		Short: "Patch a rule's scope, condition, or enforcement",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			var upd engine.RuleUpdate
			if cmd.Flags().Changed("scope") {
				upd.Scope = &updScope
			}
			if cmd.Flags().Changed("condition") {
				upd.Condition = &updCondition
			}
			if cmd.Flags().Changed("enforcement") {
				e := model.Enforcement(updEnforcement)
				upd.Enforcement = &e
			}
			return rt.Engine.UpdateRule(cmd.Context(), rt.Tenant, updateID, upd)
		},
	}
	update.Flags().StringVar(&updateID, "id", "", "Rule id.")
	update.Flags().StringVar(&updScope, "scope", "", "New scope.")
	update.Flags().StringVar(&updCondition, "condition", "", "New condition text.")
	update.Flags().StringVar(&updEnforcement, "enforcement", "", "New enforcement (suggest, enforce, block).")
	_ = update.MarkFlagRequired("id")

	var touchID, deleteID string
	touch := &cobra.Command{
		Use:   "touch",
		Short: "Mark a rule as triggered",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			return rt.Engine.TouchRule(cmd.Context(), rt.Tenant, touchID)
		},
	}
	touch.Flags().StringVar(&touchID, "id", "", "Rule id.")
	_ = touch.MarkFlagRequired("id")

	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete a rule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			return rt.Engine.DeleteRule(cmd.Context(), rt.Tenant, deleteID)
		},
	}
	del.Flags().StringVar(&deleteID, "id", "", "Rule id.")
	_ = del.MarkFlagRequired("id")

	root.AddCommand(add, list, update, touch, del)
	return root
}

func ruleInputFrom(req RuleRequest) engine.RuleInput {
	return engine.RuleInput{
		Scope:       req.Scope,
		Condition:   req.Condition,
		Enforcement: model.Enforcement(req.Enforcement),
	}
}

func newCheckpointCommand(rb *runtimeBuilder) *cobra.Command {
	root := &cobra.Command{Use: "checkpoint", Short: "Write, read, and hand off journal checkpoints"}

	var setContent string
	set := &cobra.Command{
		Use:   "set",
		Short: "Append a checkpoint entry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			entry, err := rt.Engine.Checkpoint(cmd.Context(), rt.Tenant, setContent)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), entry.ID)
			return nil
		},
	}
	set.Flags().StringVar(&setContent, "content", "", "Checkpoint content.")
	_ = set.MarkFlagRequired("content")

	get := &cobra.Command{
		Use:   "get",
		Short: "Print the latest checkpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			entry, err := rt.Engine.LatestCheckpoint(cmd.Context(), rt.Tenant)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", entry)
			return nil
		},
	}

	var sealContent string
	seal := &cobra.Command{
		Use:   "seal",
		Short: "Seal the latest checkpoint into a hand-off token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			token, err := rt.Engine.SealCheckpoint(cmd.Context(), rt.Tenant, rt.Sealer, sealContent)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	seal.Flags().StringVar(&sealContent, "content", "", "Checkpoint content to seal.")
	_ = seal.MarkFlagRequired("content")

	var openToken string
	open := &cobra.Command{
		Use:   "open",
		Short: "Open a sealed checkpoint token from another tenant context",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			tctx, entry, err := rt.Engine.OpenCheckpoint(cmd.Context(), rt.Sealer, openToken)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user=%s team=%s entry=%+v\n", tctx.UserID, tctx.TeamID, entry)
			return nil
		},
	}
	open.Flags().StringVar(&openToken, "token", "", "Sealed checkpoint token.")
	_ = open.MarkFlagRequired("token")

	root.AddCommand(set, get, seal, open)
	return root
}

func newEvaluateCommand(rb *runtimeBuilder) *cobra.Command {
	var scope, resource, action string
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Advisory policy check against the tenant's rules (never gates Remember/Recall)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			allowed, err := rt.Engine.Evaluate(cmd.Context(), rt.Tenant, scope, resource, action)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), allowed)
			return nil
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "", "Rule scope to evaluate against.")
	cmd.Flags().StringVar(&resource, "resource", "", "Resource under evaluation.")
	cmd.Flags().StringVar(&action, "action", "", "Action under evaluation.")
	return cmd
}

func newMigrateCommand(rb *runtimeBuilder) *cobra.Command {
	var toUserID, toTeamID string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Reassign every record under the current tenant to a new one",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			n, err := rt.Engine.Migrate(cmd.Context(), rt.Tenant, tenant.Context{UserID: toUserID, TeamID: toTeamID})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %d records\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&toUserID, "to-user-id", "", "Destination user id.")
	cmd.Flags().StringVar(&toTeamID, "to-team-id", "", "Destination team id.")
	_ = cmd.MarkFlagRequired("to-user-id")
	return cmd
}

func newTeamMemoriesCommand(rb *runtimeBuilder) *cobra.Command {
	var teamID string
	cmd := &cobra.Command{
		Use:   "team-memories",
		Short: "List every team-visibility memory for a team",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rb.get(cmd.Context())
			if err != nil {
				return err
			}
			mems, err := rt.Engine.TeamMemoriesList(cmd.Context(), teamID)
			if err != nil {
				return err
			}
			for _, m := range mems {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", m.ID, m.Gate, m.Content)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&teamID, "team-id", "", "Team id.")
	_ = cmd.MarkFlagRequired("team-id")
	return cmd
}
