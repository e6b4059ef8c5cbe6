package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the question set for a level",
	RunE: func(cmd *cobra.Command, args []string) error {
		lvl, _ := cmd.Flags().GetInt("level")
		sessionID, _ := cmd.Flags().GetString("session")
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		addr, err := resolveAddr(cmd)
		if err != nil {
			return err
		}
		var out json.RawMessage
		if err := newDaemonClient(addr).generate(cmd.Context(), lvl, sessionID, &out); err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which levels a session has unlocked and passed",
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")

		addr, err := resolveAddr(cmd)
		if err != nil {
			return err
		}
		var out struct {
			Levels map[string]struct {
				Unlocked bool `json:"unlocked"`
				Passed   bool `json:"passed"`
			} `json:"levels"`
		}
		if err := newDaemonClient(addr).status(cmd.Context(), sessionID, &out); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Session: %s\n\n", sessionID)
		for _, tag := range sortedKeys(out.Levels) {
			st := out.Levels[tag]
			fmt.Fprintf(w, "%-4s %-9s %s\n", tag, mark(st.Unlocked, "unlocked", "locked"), mark(st.Passed, "passed", "-"))
		}
		return nil
	},
}

var thresholdsCmd = &cobra.Command{
	Use:   "thresholds",
	Short: "Show the pass threshold of every level",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := resolveAddr(cmd)
		if err != nil {
			return err
		}
		var out struct {
			Thresholds map[string]int `json:"thresholds"`
		}
		if err := newDaemonClient(addr).thresholds(cmd.Context(), &out); err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		for _, tag := range sortedKeys(out.Thresholds) {
			fmt.Fprintf(w, "%-4s %3d\n", tag, out.Thresholds[tag])
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().Int("level", 1, "Level number (1-4)")
	generateCmd.Flags().String("session", "", "Session ID (default: a new UUID)")

	statusCmd.Flags().String("session", "", "Session ID (UUID v4)")
	_ = statusCmd.MarkFlagRequired("session")
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func mark(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
