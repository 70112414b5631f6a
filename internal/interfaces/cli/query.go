package cli

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/turtacn/ProbAL-Intelligence/pkg/errors"
	qtypes "github.com/turtacn/ProbAL-Intelligence/pkg/types/query"
)

// NewQueryCmd creates the query command with one subcommand per strategy.
func NewQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Select instances to label next",
		Long:  "Run an active-learning query over the candidates described in a request file (YAML or JSON).",
	}
	cmd.AddCommand(
		newStrategyCmd(qtypes.StrategyMcPAL, "Multi-class probabilistic active learning (closed form)"),
		newStrategyCmd(qtypes.StrategyXPAL, "Generalized probabilistic gain with lookahead and batch modes"),
		newStrategyCmd(qtypes.StrategyRandom, "Uniformly random baseline"),
	)
	return cmd
}

func newStrategyCmd(strategy qtypes.Strategy, short string) *cobra.Command {
	var (
		file      string
		batchSize int
		seed      int64
	)

	cmd := &cobra.Command{
		Use:   string(strategy),
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			req, err := readRequest(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			req.Strategy = strategy
			if cmd.Flags().Changed("batch-size") {
				req.BatchSize = batchSize
			}
			if cmd.Flags().Changed("seed") {
				req.Seed = &seed
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
			defer cancel()

			resp, err := cliCtx.Service.Query(ctx, req)
			if err != nil {
				return err
			}
			return PrintResult(cmd, queryOutput{resp})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "request file, YAML or JSON (\"-\" reads stdin) [REQUIRED]")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "override the request batch size")
	cmd.Flags().Int64Var(&seed, "seed", 0, "override the tie-break seed")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// readRequest decodes a request file.  YAML is a superset of JSON, so one
// decoder serves both.
func readRequest(path string, stdin io.Reader) (*qtypes.Request, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidArgument, "cannot read request file")
	}

	req := &qtypes.Request{}
	if err := yaml.Unmarshal(data, req); err != nil {
		return nil, errors.Wrap(err, errors.CodeSerialization, "malformed request file")
	}
	return req, nil
}

// ---------------------------------------------------------------------------
// Output
// ---------------------------------------------------------------------------

type queryOutput struct {
	*qtypes.Response
}

// String renders the text output.
func (o queryOutput) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "query %s (%s): selected %v\n", o.QueryID, o.Strategy, o.Indices)
	for i, idx := range o.Indices {
		fmt.Fprintf(&sb, "  #%d  candidate %d  utility %s\n", i+1, idx, o.utility(i, idx))
	}
	for _, a := range o.Advisories {
		fmt.Fprintf(&sb, "advisory %s: %s\n", a.Code, a.Message)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (o queryOutput) TableHeaders() []string {
	return []string{"RANK", "CANDIDATE", "UTILITY"}
}

func (o queryOutput) TableRows() [][]string {
	rows := make([][]string, len(o.Indices))
	for i, idx := range o.Indices {
		rows[i] = []string{strconv.Itoa(i + 1), strconv.Itoa(idx), o.utility(i, idx)}
	}
	return rows
}

func (o queryOutput) utility(step, idx int) string {
	if step >= len(o.Utilities) || idx >= len(o.Utilities[step]) || math.IsNaN(o.Utilities[step][idx]) {
		return "-"
	}
	return strconv.FormatFloat(o.Utilities[step][idx], 'g', 6, 64)
}
