package cli

import "testing"

func TestCommandTree(t *testing.T) {
	want := []string{"run", "serve", "alerts", "analytics", "evaluate", "export", "history", "resolve", "backfill", "version", "simulate-alert"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("command %q not registered: %v", name, err)
		}
	}
}

func TestFilterFlagsShared(t *testing.T) {
	for _, name := range []string{"alerts", "analytics", "evaluate", "export"} {
		cmd, _, _ := rootCmd.Find([]string{name})
		for _, flag := range []string{"start", "end", "days", "hotel", "city", "state", "yoy"} {
			if cmd.Flags().Lookup(flag) == nil {
				t.Fatalf("%s is missing --%s", name, flag)
			}
		}
	}
	if f := evaluateCmd.Flags().Lookup("csv"); f == nil {
		t.Fatal("evaluate requires --csv")
	}
}

func TestPersistentOverrides(t *testing.T) {
	for _, flag := range []string{"config", "log-level", "log-format", "dsn"} {
		if rootCmd.PersistentFlags().Lookup(flag) == nil {
			t.Fatalf("missing persistent --%s", flag)
		}
	}
}
