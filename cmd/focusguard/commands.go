package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/eliteGoblin/focusd/focus_guard/internal/content"
	"github.com/eliteGoblin/focusd/focus_guard/internal/domain"
	"github.com/eliteGoblin/focusd/focus_guard/internal/infra"
	"github.com/eliteGoblin/focusd/focus_guard/internal/policy"
)

var checkCmd = &cobra.Command{
	Use:   "check <surface-id>",
	Short: "Evaluate one surface against the current policy",
	Long: `Runs a single decision without showing an overlay. For a browser, pass
the address with --url or a content tree with --content.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

var (
	checkURL     string
	checkContent string
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Show or change the focus policy",
}

var policyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current policy",
	RunE:  runPolicyShow,
}

var policySetCmd = &cobra.Command{
	Use:   "set <apps|browsers|websites> [entries...]",
	Short: "Replace a blocked list (no entries clears it)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPolicySet,
}

var policySessionCmd = &cobra.Command{
	Use:   "session <on|off>",
	Short: "Start or stop the focus session",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setFlag(domain.KeySessionActive, args[0]) },
}

var policyShieldCmd = &cobra.Command{
	Use:   "shield <on|off>",
	Short: "Enable or disable the system shield",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setFlag(domain.KeySystemShieldEnabled, args[0]) },
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the engine is running and what is blocked",
	RunE:  runStatus,
}

var logsCmd = &cobra.Command{
	Use:   "logs [message]",
	Short: "Print the event log of the running engine, or append a message",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogs,
}

var logsAddr string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var listKeys = map[string]string{
	"apps":     domain.KeyBlockedApps,
	"browsers": domain.KeyBlockedBrowsers,
	"websites": domain.KeyBlockedWebsites,
}

func init() {
	checkCmd.Flags().StringVar(&checkURL, "url", "", "Address shown in the browser")
	checkCmd.Flags().StringVar(&checkContent, "content", "", "JSON content tree file")
	logsCmd.Flags().StringVar(&logsAddr, "addr", "", "API address of the running engine (default from config)")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")
	policyShowCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output policy as JSON")

	policyCmd.AddCommand(policyShowCmd)
	policyCmd.AddCommand(policySetCmd)
	policyCmd.AddCommand(policySessionCmd)
	policyCmd.AddCommand(policyShieldCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, dataDir, err := loadConfig()
	if err != nil {
		return err
	}
	s, closeStore, err := openStore(cfg, dataDir)
	if err != nil {
		return err
	}
	defer closeStore()

	a := buildApp(cfg, s, io.Discard, nil, cliLogger())

	switch {
	case checkContent != "":
		data, err := os.ReadFile(checkContent)
		if err != nil {
			return fmt.Errorf("failed to read content tree: %w", err)
		}
		root, err := content.Decode(data)
		if err != nil {
			return err
		}
		a.content.Set(root)
	case checkURL != "":
		a.content.Set(&content.Node{
			NodeRole: "android.widget.FrameLayout",
			Children: []*content.Node{{
				NodeText:     checkURL,
				NodeRole:     "android.widget.EditText",
				NodeEditable: true,
			}},
		})
	}

	d := a.engine.Decide(domain.ForegroundEvent{SurfaceID: args[0], Timestamp: time.Now()})
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s -> %s (%s)\n", d.SurfaceID, d.Action, d.Reason)
	if d.URL != "" {
		fmt.Fprintf(out, "url: %s\n", d.URL)
	}
	if d.Matched != "" {
		fmt.Fprintf(out, "matched: %s\n", d.Matched)
	}
	return nil
}

func runPolicyShow(cmd *cobra.Command, args []string) error {
	cfg, dataDir, err := loadConfig()
	if err != nil {
		return err
	}
	s, closeStore, err := openStore(cfg, dataDir)
	if err != nil {
		return err
	}
	defer closeStore()

	snap, problems := policy.NewLoader(s, cliLogger()).Load()
	out := cmd.OutOrStdout()

	if jsonOutput {
		return json.NewEncoder(out).Encode(map[string]any{
			"blocked_apps":          snap.BlockedApps.Sorted(),
			"blocked_browsers":      snap.BlockedBrowsers.Sorted(),
			"blocked_websites":      snap.BlockedWebsites.Sorted(),
			"session_active":        snap.SessionActive,
			"system_shield_enabled": snap.SystemShieldEnabled,
		})
	}

	fmt.Fprintf(out, "Store: %s (%s)\n", s.Path(), cfg.Store.Kind)
	fmt.Fprintf(out, "Session active: %t\n", snap.SessionActive)
	fmt.Fprintf(out, "System shield:  %t\n", snap.SystemShieldEnabled)
	printList(out, "Blocked apps", snap.BlockedApps)
	printList(out, "Blocked browsers", snap.BlockedBrowsers)
	printList(out, "Blocked websites", snap.BlockedWebsites)
	for _, p := range problems {
		fmt.Fprintf(out, "warning: %v\n", p)
	}
	return nil
}

func printList(out io.Writer, title string, set domain.StringSet) {
	fmt.Fprintf(out, "%s (%d):\n", title, len(set))
	for _, v := range set.Sorted() {
		fmt.Fprintf(out, "  - %s\n", v)
	}
}

func runPolicySet(cmd *cobra.Command, args []string) error {
	key, ok := listKeys[args[0]]
	if !ok {
		return fmt.Errorf("unknown list %q (want apps, browsers or websites)", args[0])
	}

	cfg, dataDir, err := loadConfig()
	if err != nil {
		return err
	}
	s, closeStore, err := openStore(cfg, dataDir)
	if err != nil {
		return err
	}
	defer closeStore()

	values := make([]string, 0, len(args)-1)
	for _, v := range args[1:] {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if err := s.SetStringList(key, values); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries\n", key, len(values))
	return nil
}

func setFlag(key, arg string) error {
	var value bool
	switch strings.ToLower(arg) {
	case "on", "true", "1":
		value = true
	case "off", "false", "0":
	default:
		return fmt.Errorf("expected on or off, got %q", arg)
	}

	cfg, dataDir, err := loadConfig()
	if err != nil {
		return err
	}
	s, closeStore, err := openStore(cfg, dataDir)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := s.SetBool(key, value); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	fmt.Printf("%s: %t\n", key, value)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, dataDir, err := loadConfig()
	if err != nil {
		return err
	}
	s, closeStore, err := openStore(cfg, dataDir)
	if err != nil {
		return err
	}
	defer closeStore()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\n=== focusguard Status ===")

	inspector := infra.NewProcessInspector()
	instance, err := s.Lookup()
	switch {
	case err != nil:
		fmt.Fprintf(out, "Status: UNKNOWN (%v)\n", err)
	case instance == nil || !inspector.IsRunning(instance.PID):
		fmt.Fprintln(out, "Status: NOT RUNNING")
	default:
		fmt.Fprintln(out, "Status: RUNNING")
		fmt.Fprintf(out, "PID: %d\n", instance.PID)
		if name, err := inspector.Name(instance.PID); err == nil {
			fmt.Fprintf(out, "Process: %s\n", name)
		}
		if started, err := inspector.CreateTime(instance.PID); err == nil {
			fmt.Fprintf(out, "Uptime: %s\n", time.Since(started).Round(time.Second))
		}
		if instance.Version != "" {
			fmt.Fprintf(out, "Version: %s\n", instance.Version)
		}
		fmt.Fprintf(out, "Last heartbeat: %s\n", instance.LastHeartbeat.Format(time.RFC3339))
	}

	snap, _ := policy.NewLoader(s, cliLogger()).Load()
	title, text := infra.FormatStatus(domain.ServiceStatus{
		BlockedApps:     len(snap.BlockedApps),
		BlockedBrowsers: len(snap.BlockedBrowsers),
		SessionActive:   snap.SessionActive,
	})
	fmt.Fprintf(out, "\n%s\n%s\n", title, text)
	fmt.Fprintf(out, "Data dir: %s (%s)\n", dataDir, infra.DetectExecMode().Mode)
	return nil
}

func runLogs(cmd *cobra.Command, args []string) error {
	addr := logsAddr
	if addr == "" {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		addr = cfg.HTTPAddr
	}
	base := "http://" + addr
	client := &http.Client{Timeout: 5 * time.Second}

	if len(args) == 1 {
		body, _ := json.Marshal(map[string]string{"message": args[0]})
		resp, err := client.Post(base+"/logs", "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("engine not reachable at %s: %w", addr, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			return fmt.Errorf("append failed: %s", resp.Status)
		}
		return nil
	}

	resp, err := client.Get(base + "/logs")
	if err != nil {
		return fmt.Errorf("engine not reachable at %s: %w", addr, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch failed: %s", resp.Status)
	}

	var lines []struct {
		Line string `json:"line"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&lines); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	out := cmd.OutOrStdout()
	for _, l := range lines {
		fmt.Fprintln(out, l.Line)
	}
	return nil
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		fmt.Printf(`{"version":"%s","commit":"%s","build_time":"%s"}`+"\n",
			Version, Commit, BuildTime)
	} else {
		fmt.Printf("focusguard %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
