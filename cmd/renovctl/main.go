// Package main implements the renovctl CLI for manual operations against the
// renovd HTTP server.
package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the renovd HTTP server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "renovctl",
	Short: "CLI for renovd HTTP server operations",
	Long: `renovctl is a command-line interface for interacting with the renovd HTTP server.
It provides commands for generating renovation plans, browsing the product
catalog, and checking server health.`,
	Version: version,
}

var (
	planNote     string
	planStyle    string
	planTier     string
	planFidelity string
	planRequest  string
	planOutput   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8480", "renovd server URL")
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(healthCmd)

	planCmd.Flags().StringVar(&planNote, "note", "", "freeform homeowner note")
	planCmd.Flags().StringVar(&planStyle, "style", "", "style description")
	planCmd.Flags().StringVar(&planTier, "tier", "STANDARD", "budget tier (BUDGET, STANDARD, PREMIUM)")
	planCmd.Flags().StringVar(&planFidelity, "fidelity", "", "render fidelity (baseline, structure_locked, two_pass_locked)")
	planCmd.Flags().StringVar(&planRequest, "request", "", "path to a JSON request body (overrides the flags above)")
	planCmd.Flags().StringVar(&planOutput, "out", "render.png", "where to write the rendered image")
}

// planCmd runs a full renovation plan from a photo
var planCmd = &cobra.Command{
	Use:   "plan <photo>",
	Short: "Generate a renovation plan from a room photo",
	Long: `Generate a renovation plan from a room photo using the renovd server.

The response spec and estimate are printed as JSON; the rendered after image
is written to --out.

Examples:
  # Plan with defaults
  renovctl plan bathroom.jpg

  # Premium tier with a note
  renovctl plan --tier PREMIUM --note "keep the window" bathroom.jpg

  # Full control via a JSON request body
  renovctl plan --request request.json bathroom.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

// catalogCmd lists catalog products
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List products from the renovd catalog",
	RunE:  runCatalog,
}

// healthCmd checks server health
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check renovd server health",
	RunE:  runHealth,
}

// planResponse matches internal/http/server.go planResponse
type planResponse struct {
	RunID         string          `json:"runId"`
	Spec          json.RawMessage `json:"spec"`
	Estimate      json.RawMessage `json:"estimate"`
	RenderedImage string          `json:"renderedImage"`
	ElapsedMS     int64           `json:"elapsedMs"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// runPlan handles the plan command
func runPlan(cmd *cobra.Command, args []string) error {
	photoPath := args[0]
	photo, err := os.ReadFile(photoPath)
	if err != nil {
		return fmt.Errorf("failed to read photo %s: %w", photoPath, err)
	}

	body, err := buildRequestBody()
	if err != nil {
		return err
	}

	var buf strings.Builder
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("photo", photoPath)
	if err != nil {
		return fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := fw.Write(photo); err != nil {
		return fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := mw.WriteField("request", string(body)); err != nil {
		return fmt.Errorf("failed to build multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to build multipart body: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/plan", serverURL)
	httpReq, err := http.NewRequest("POST", url, strings.NewReader(buf.String()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	// Plan runs take up to two minutes server side.
	client := &http.Client{
		Timeout: 3 * time.Minute,
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("server returned status %d: %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var plan planResponse
	if err := json.NewDecoder(resp.Body).Decode(&plan); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	out := map[string]json.RawMessage{
		"spec":     plan.Spec,
		"estimate": plan.Estimate,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to print response: %w", err)
	}

	if err := writeRenderedImage(plan.RenderedImage, planOutput); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "[renovctl] run %s finished in %dms, image written to %s\n",
		plan.RunID, plan.ElapsedMS, planOutput)
	return nil
}

// buildRequestBody assembles the JSON part of the multipart request from
// either --request or the individual flags.
func buildRequestBody() ([]byte, error) {
	if planRequest != "" {
		body, err := os.ReadFile(planRequest)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body %s: %w", planRequest, err)
		}
		return body, nil
	}

	req := map[string]any{
		"tier": planTier,
	}
	if planNote != "" {
		req["note"] = planNote
	}
	if planStyle != "" {
		req["style"] = map[string]any{"summary": planStyle}
	}
	if planFidelity != "" {
		req["fidelity"] = planFidelity
	}
	return json.Marshal(req)
}

// writeRenderedImage decodes a data URI or reports a remote URL.
func writeRenderedImage(ref, path string) error {
	switch {
	case ref == "":
		fmt.Fprintln(os.Stderr, "[renovctl] no rendered image in response")
		return nil
	case strings.HasPrefix(ref, "data:"):
		idx := strings.Index(ref, ";base64,")
		if idx < 0 {
			return fmt.Errorf("unexpected image encoding in response")
		}
		data, err := base64.StdEncoding.DecodeString(ref[idx+len(";base64,"):])
		if err != nil {
			return fmt.Errorf("failed to decode rendered image: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		return nil
	default:
		// Remote URL; leave the download to the user.
		fmt.Fprintf(os.Stderr, "[renovctl] rendered image available at %s\n", ref)
		return nil
	}
}

// runCatalog handles the catalog command
func runCatalog(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/api/v1/catalog/products", serverURL)

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var pretty json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&pretty); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(pretty)
}

// runHealth handles the health command
func runHealth(cmd *cobra.Command, args []string) error {
	url := fmt.Sprintf("%s/healthz", serverURL)

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to connect to %s: %v\n", url, err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("server returned status %d (failed to read response body: %w)", resp.StatusCode, readErr)
		}
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var health struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	fmt.Printf("Server Status: %s\n", health.Status)
	fmt.Printf("Server URL: %s\n", serverURL)

	return nil
}
