package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/plantag/pkg/plantag"
)

var (
	batchInput   string
	batchOutput  string
	batchTree    bool
	batchSummary bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Classify items from a JSON lines file",
	Long: `Read items ({"id": ..., "tag": ..., "discipline": ...}) one per line and
write one outcome per line, in input order. A line holding a bare string is
taken as a tag. With --tree the consolidated hierarchy follows as a final line,
and --summary adds the stored per-bucket counts after that.`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchInput, "input", "i", "-", "Input JSON lines file (- for stdin)")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "-", "Output file (- for stdout)")
	batchCmd.Flags().BoolVar(&batchTree, "tree", false, "Append the consolidated hierarchy")
	batchCmd.Flags().BoolVar(&batchSummary, "summary", false, "Append per-bucket outcome counts")
}

func runBatch(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if batchInput != "-" {
		f, err := os.Open(batchInput)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	items, err := readItems(in)
	if err != nil {
		return err
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	if batchOutput != "-" {
		f, err := os.Create(batchOutput)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	outcomes, err := s.engine.ProcessBatch(cmd.Context(), items, workers)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(out)
	enc := json.NewEncoder(w)
	failed := 0
	for _, o := range outcomes {
		if o.Failed() {
			failed++
		}
		if err := enc.Encode(o); err != nil {
			return err
		}
	}
	if batchTree {
		if err := enc.Encode(plantag.Tree(outcomes)); err != nil {
			return err
		}
	}
	counts, err := s.store.CountByBucket(cmd.Context())
	if err != nil {
		return err
	}
	if batchSummary {
		if err := enc.Encode(map[string]map[string]int{"buckets": counts}); err != nil {
			return err
		}
	}
	logger.Info("batch classified",
		zap.Int("items", len(items)),
		zap.Int("rejected", failed),
		zap.Any("buckets", counts))
	return w.Flush()
}

func readItems(r io.Reader) ([]plantag.Item, error) {
	var items []plantag.Item
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var item plantag.Item
		if strings.HasPrefix(text, `"`) {
			if err := json.Unmarshal([]byte(text), &item.Tag); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		} else if err := json.Unmarshal([]byte(text), &item); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		items = append(items, item)
	}
	return items, sc.Err()
}
