package cmd

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"

	"github.com/astralmap/astralmap/internal/config"
	"github.com/astralmap/astralmap/internal/output"
)

var (
	doctorConnectivityRole    string
	doctorConnectivityTimeout time.Duration
	doctorConnectivityOutput  string
)

type connectivityErrInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type connectivityCheck struct {
	Name      string               `json:"name"`
	OK        bool                 `json:"ok"`
	Skipped   bool                 `json:"skipped,omitempty"`
	LatencyMS int64                `json:"latency_ms,omitempty"`
	Details   map[string]any       `json:"details,omitempty"`
	Error     *connectivityErrInfo `json:"error,omitempty"`
}

type connectivitySummary struct {
	OK             bool     `json:"ok"`
	Classification string   `json:"classification"`
	FailureLayer   string   `json:"failure_layer,omitempty"`
	Hints          []string `json:"hints,omitempty"`
}

// connectivityTarget is one provider endpoint checked layer by layer.
type connectivityTarget struct {
	Route   aiLinkRoute         `json:"route"`
	Host    string              `json:"host,omitempty"`
	Port    int                 `json:"port,omitempty"`
	Checks  []connectivityCheck `json:"checks"`
	Summary connectivitySummary `json:"summary"`
}

type connectivityReport struct {
	Version   string               `json:"version"`
	Timestamp string               `json:"timestamp"`
	Prompt    string               `json:"prompt"`
	Targets   []connectivityTarget `json:"targets"`
	OK        bool                 `json:"ok"`
}

var doctorAILinkConnectivityCmd = &cobra.Command{
	Use:   "connectivity [prompt-slug]",
	Short: "Check network reachability of the report's AI providers",
	Long: `Resolve the report's text and image roles, then check DNS, TCP, TLS and
an authenticated models listing against each provider base URL.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(doctorConnectivityOutput)
		if err != nil {
			return err
		}
		if format != output.FormatTable && format != output.FormatJSON {
			return fmt.Errorf("unsupported output %q (use table or json)", doctorConnectivityOutput)
		}

		cfg, err := config.Load(cmd.Context())
		if err != nil {
			return err
		}
		registry, err := buildPromptRegistry(cfg)
		if err != nil {
			return err
		}
		slug := cfg.Report.PromptSlug
		if len(args) == 1 {
			slug = strings.TrimSpace(args[0])
		}
		def, err := registry.Get(slug)
		if err != nil {
			return err
		}

		routes := resolveAILinkRoutes(cfg, def, doctorConnectivityRole, "")
		report := runConnectivity(cmd.Context(), slug, routes, doctorConnectivityTimeout)

		if format == output.FormatJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
		} else {
			renderConnectivityReport(cmd.OutOrStdout(), report)
		}
		if !report.OK {
			return fmt.Errorf("connectivity check failed")
		}
		return nil
	},
}

func init() {
	doctorAILinkCmd.AddCommand(doctorAILinkConnectivityCmd)
	doctorAILinkConnectivityCmd.Flags().StringVar(&doctorConnectivityRole, "role", "", "check only this role")
	doctorAILinkConnectivityCmd.Flags().DurationVar(&doctorConnectivityTimeout, "timeout", 10*time.Second, "timeout per check")
	doctorAILinkConnectivityCmd.Flags().StringVarP(&doctorConnectivityOutput, "output", "o", "table", "output format (table, json)")
}

// runConnectivity checks every distinct provider endpoint among routes.
// Routes that failed to resolve are reported as misconfigured.
func runConnectivity(ctx context.Context, slug string, routes []aiLinkRoute, timeout time.Duration) *connectivityReport {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	report := &connectivityReport{
		Version:   versionInfo.Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Prompt:    slug,
		OK:        true,
	}

	seen := map[string]bool{}
	for _, route := range routes {
		key := route.ProviderID + "|" + route.BaseURL + "|" + route.CredentialLabel
		if route.Error == "" && seen[key] {
			continue
		}
		seen[key] = true

		target := checkTarget(ctx, route, timeout)
		report.OK = report.OK && target.Summary.OK
		report.Targets = append(report.Targets, target)
	}
	return report
}

func checkTarget(ctx context.Context, route aiLinkRoute, timeout time.Duration) connectivityTarget {
	target := connectivityTarget{Route: route}
	fail := func(code, msg string) connectivityTarget {
		target.Checks = []connectivityCheck{{Name: "resolve", Error: &connectivityErrInfo{Code: code, Message: msg}}}
		target.Summary = classifyConnectivity(target.Checks)
		return target
	}
	if route.Error != "" {
		return fail("RESOLVE_ERROR", route.Error)
	}

	u, err := url.Parse(route.BaseURL)
	if err != nil || u.Hostname() == "" {
		return fail("BASE_URL_ERROR", fmt.Sprintf("base_url %q has no host", route.BaseURL))
	}
	secure := !strings.EqualFold(u.Scheme, "http")
	target.Host = u.Hostname()
	target.Port = 443
	if !secure {
		target.Port = 80
	}
	if p, err := strconv.Atoi(u.Port()); err == nil {
		target.Port = p
	}

	checks := []connectivityCheck{runDNSCheck(ctx, target.Host, timeout)}
	if checks[0].OK {
		tcp, conn := runTCPCheck(ctx, target.Host, target.Port, timeout)
		checks = append(checks, tcp)
		if tcp.OK {
			if secure {
				checks = append(checks, runTLSCheck(ctx, target.Host, conn, timeout))
			} else {
				_ = conn.Close()
				checks = append(checks, connectivityCheck{Name: "tls", Skipped: true, Details: map[string]any{"reason": "plain http"}})
			}
		}
	}
	if last := checks[len(checks)-1]; last.OK || last.Skipped {
		checks = append(checks, runHTTPAuthCheck(ctx, route.AIProvider, route.BaseURL, route.apiKey, timeout))
	}

	target.Checks = checks
	target.Summary = classifyConnectivity(checks)
	return target
}

func runDNSCheck(ctx context.Context, host string, timeout time.Duration) connectivityCheck {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	check := connectivityCheck{Name: "dns", LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		check.Error = &connectivityErrInfo{Code: "DNS_ERROR", Message: err.Error()}
		return check
	}

	resolved := make([]string, 0, len(ips))
	for _, ip := range ips {
		resolved = append(resolved, ip.IP.String())
	}
	check.OK = true
	check.Details = map[string]any{"resolved_ips": resolved}
	return check
}

func runTCPCheck(ctx context.Context, host string, port int, timeout time.Duration) (connectivityCheck, net.Conn) {
	start := time.Now()
	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	check := connectivityCheck{Name: "tcp", LatencyMS: time.Since(start).Milliseconds()}
	if err != nil {
		check.Error = &connectivityErrInfo{Code: "TCP_ERROR", Message: err.Error()}
		return check, nil
	}
	check.OK = true
	check.Details = map[string]any{"remote_addr": conn.RemoteAddr().String()}
	return check, conn
}

func runTLSCheck(ctx context.Context, host string, conn net.Conn, timeout time.Duration) connectivityCheck {
	check := connectivityCheck{Name: "tls"}
	if conn == nil {
		check.Skipped = true
		return check
	}

	start := time.Now()
	_ = conn.SetDeadline(time.Now().Add(timeout))
	client := tls.Client(conn, &tls.Config{ServerName: host})
	defer func() { _ = client.Close() }()
	err := client.HandshakeContext(ctx)
	check.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		check.Error = &connectivityErrInfo{Code: "TLS_ERROR", Message: err.Error()}
		return check
	}

	state := client.ConnectionState()
	check.OK = true
	check.Details = map[string]any{
		"tls_version":  tls.VersionName(state.Version),
		"cipher_suite": tls.CipherSuiteName(state.CipherSuite),
	}
	if len(state.PeerCertificates) > 0 {
		leaf := state.PeerCertificates[0]
		check.Details["cert_issuer"] = leaf.Issuer.CommonName
		check.Details["cert_not_after"] = leaf.NotAfter.UTC().Format(time.RFC3339)
	}
	return check
}

// modelsEndpoint returns the models listing URL for an ai_provider.
func modelsEndpoint(aiProvider, baseURL string) (string, bool) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	switch aiProvider {
	case "openai":
		return base + "/models", true
	case "gemini":
		return base + "/v1beta/models", true
	}
	return "", false
}

func runHTTPAuthCheck(ctx context.Context, aiProvider, baseURL, apiKey string, timeout time.Duration) connectivityCheck {
	check := connectivityCheck{Name: "http_auth"}
	aiProvider = strings.ToLower(strings.TrimSpace(aiProvider))
	modelsURL, ok := modelsEndpoint(aiProvider, baseURL)
	if !ok {
		check.Skipped = true
		check.Details = map[string]any{"reason": "auth check not supported for ai_provider"}
		return check
	}
	if strings.TrimSpace(apiKey) == "" {
		check.Error = &connectivityErrInfo{Code: "NO_API_KEY", Message: "no API key configured"}
		return check
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, modelsURL, nil)
	if err != nil {
		check.Error = &connectivityErrInfo{Code: "HTTP_REQUEST_ERROR", Message: err.Error()}
		return check
	}
	addAuthHeader(req, aiProvider, apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := (&http.Client{Timeout: timeout}).Do(req)
	check.LatencyMS = time.Since(start).Milliseconds()
	if err != nil {
		check.Error = &connectivityErrInfo{Code: "HTTP_ERROR", Message: err.Error()}
		return check
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 32768))

	check.Details = map[string]any{"url": modelsURL, "status_code": resp.StatusCode}
	switch resp.StatusCode {
	case http.StatusOK:
		check.OK = true
	case http.StatusUnauthorized, http.StatusForbidden:
		check.Error = &connectivityErrInfo{Code: "AUTH_ERROR", Message: resp.Status}
	case http.StatusTooManyRequests:
		check.Error = &connectivityErrInfo{Code: "RATE_LIMITED", Message: resp.Status}
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		check.Error = &connectivityErrInfo{Code: "PROVIDER_UNAVAILABLE", Message: resp.Status}
	default:
		check.Error = &connectivityErrInfo{Code: "HTTP_STATUS_ERROR", Message: resp.Status}
	}
	return check
}

func addAuthHeader(req *http.Request, aiProvider, apiKey string) {
	apiKey = strings.TrimSpace(apiKey)
	if req == nil || apiKey == "" {
		return
	}
	if aiProvider == "gemini" {
		req.Header.Set("x-goog-api-key", apiKey)
		return
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
}

// classifyConnectivity reports the first failing layer with a hint.
func classifyConnectivity(checks []connectivityCheck) connectivitySummary {
	summary := connectivitySummary{OK: true, Classification: "ok"}
	var failed *connectivityCheck
	for i := range checks {
		if !checks[i].Skipped && !checks[i].OK {
			failed = &checks[i]
			break
		}
	}
	if failed == nil {
		return summary
	}

	summary.OK = false
	summary.FailureLayer = failed.Name
	if proxySet() {
		summary.Hints = append(summary.Hints, "Proxy environment variables are set; a proxy may be intercepting requests")
	}

	code := ""
	if failed.Error != nil {
		code = failed.Error.Code
	}
	switch {
	case failed.Name == "resolve":
		summary.Classification = "misconfigured"
		summary.Hints = append(summary.Hints, "Provider could not be resolved; run 'doctor ailink' for details")
	case failed.Name == "dns":
		summary.Classification = "dns_failure"
		summary.Hints = append(summary.Hints, "DNS resolution failed; check VPN/DNS configuration")
	case failed.Name == "tcp":
		summary.Classification = "network_blocked"
		summary.Hints = append(summary.Hints, "TCP connection failed; a firewall may be blocking outbound connections")
	case failed.Name == "tls":
		summary.Classification = "tls_failure"
		summary.Hints = append(summary.Hints, "TLS handshake failed; check proxy interception or certificates")
	case code == "NO_API_KEY":
		summary.Classification = "misconfigured"
		summary.Hints = append(summary.Hints, "No API key configured for the selected credential")
	case code == "AUTH_ERROR":
		summary.Classification = "auth_invalid"
		summary.Hints = append(summary.Hints, "API key rejected (401/403); verify key and permissions")
	case code == "RATE_LIMITED":
		summary.Classification = "rate_limited"
		summary.Hints = append(summary.Hints, "Provider rate limited the request; retry later")
	case code == "PROVIDER_UNAVAILABLE":
		summary.Classification = "provider_overloaded"
		summary.Hints = append(summary.Hints, "Provider returned 5xx; retry later")
	default:
		summary.Classification = "http_error"
	}
	return summary
}

func proxySet() bool {
	for _, key := range []string{"HTTP_PROXY", "http_proxy", "HTTPS_PROXY", "https_proxy"} {
		if _, ok := os.LookupEnv(key); ok {
			return true
		}
	}
	return false
}

func renderConnectivityReport(w io.Writer, report *connectivityReport) {
	for _, target := range report.Targets {
		status := "OK"
		if !target.Summary.OK {
			status = "FAIL"
		}
		route := target.Route
		lines := []string{
			fmt.Sprintf("AILink Connectivity (%s)", status),
			"",
			fmt.Sprintf("prompt: %s", report.Prompt),
			fmt.Sprintf("role:   %s (%s)", route.Role, route.Kind),
			fmt.Sprintf("prov:   %s (%s)", valueOrUnset(route.ProviderID), valueOrUnset(route.AIProvider)),
			fmt.Sprintf("url:    %s", valueOrUnset(route.BaseURL)),
			fmt.Sprintf("model:  %s", valueOrUnset(route.Model)),
			"",
		}
		for _, chk := range target.Checks {
			if chk.Skipped {
				lines = append(lines, fmt.Sprintf("%-10s %s", chk.Name+":", "skipped"))
				continue
			}
			symbol, msg := "✅", "ok"
			if !chk.OK {
				symbol = "❌"
			}
			if chk.Error != nil {
				msg = chk.Error.Code
			}
			suffix := ""
			if chk.LatencyMS > 0 {
				suffix = fmt.Sprintf(" (%dms)", chk.LatencyMS)
			}
			lines = append(lines, fmt.Sprintf("%-10s %s %s%s", chk.Name+":", symbol, msg, suffix))
		}
		if len(target.Summary.Hints) > 0 {
			lines = append(lines, "", "hints:")
			for _, hint := range target.Summary.Hints {
				lines = append(lines, "- "+hint)
			}
		}
		_, _ = fmt.Fprint(w, ascii.DrawBox(strings.Join(lines, "\n"), 0))
	}
}
