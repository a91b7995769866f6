package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/jitcore/internal/config"
	"github.com/marmos91/jitcore/internal/ir"
	"github.com/marmos91/jitcore/internal/optimizer"
	"github.com/marmos91/jitcore/pkg/jitruntime"
)

var (
	compileMethodID      string
	compileNodes         int
	compileStrategyFile  string
	compileTraceStrategy bool
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Run one optimize() pass over a synthetic method",
	Long: `compile builds a synthetic one-block method and drives it through
the optimization orchestrator using jitcore's built-in demonstration
registry (internal/ir has no real front-end in this module). Use
--strategy-file to supply a custom strategy array instead of the default
run-every-pass strategy, and --trace-strategy to print each strategy entry
before it runs.`,
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().StringVar(&compileMethodID, "method-id", "demo.Method", "identifier recorded for this compile's profile/invariant entries")
	compileCmd.Flags().IntVar(&compileNodes, "nodes", 3, "number of synthetic IR nodes to build the method from")
	compileCmd.Flags().StringVar(&compileStrategyFile, "strategy-file", "", "path to a JSON array of int32 strategy ids (see optimizer.DecodeStrategy)")
	compileCmd.Flags().BoolVar(&compileTraceStrategy, "trace-strategy", false, "print each strategy entry to stderr before it runs")
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg := config.MustLoad(GetConfigFile())
	ctx := cmd.Context()

	registry := defaultRegistry()

	strategy, err := loadStrategy(registry)
	if err != nil {
		return err
	}
	if compileTraceStrategy {
		for _, entry := range strategy {
			fmt.Fprintf(os.Stderr, "jitcore: strategy entry %s (guard=%d, post=%d)\n", registry.Name(entry.OptID), entry.Guard, entry.Post)
		}
	}

	rt, err := jitruntime.New(ctx, cfg, jitruntime.Options{Registry: registry})
	if err != nil {
		return fmt.Errorf("failed to build runtime: %w", err)
	}
	defer func() {
		if err := rt.Close(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "jitcore: runtime shutdown error: %v\n", err)
		}
	}()

	method := buildSyntheticMethod(compileNodes)
	compilation := ir.NewRefCompilation()

	result, err := rt.Compile(ctx, jitruntime.CompileRequest{
		MethodID:    compileMethodID,
		Compilation: compilation,
		Method:      method,
		Strategy:    strategy,
	})
	if err != nil {
		return fmt.Errorf("compile failed: %w", err)
	}

	fmt.Printf("compilation %s: method=%s hotness=%d nodes=%d symrefs=%d\n",
		result.CompilationID, result.MethodID, result.Hotness, result.NodeCount, result.SymRefCount)
	return nil
}

// loadStrategy reads --strategy-file if set, otherwise runs every
// registered pass in order.
func loadStrategy(registry *optimizer.Registry) (optimizer.Strategy, error) {
	if compileStrategyFile == "" {
		return defaultStrategy(registry), nil
	}

	data, err := os.ReadFile(compileStrategyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read strategy file: %w", err)
	}

	var raw []int32
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse strategy file as a JSON array of ints: %w", err)
	}

	strategy, err := optimizer.DecodeStrategy(registry, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode strategy: %w", err)
	}
	return strategy, nil
}
