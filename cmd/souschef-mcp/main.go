package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/souschef/models"
)

func main() {
	apiURL := os.Getenv("SOUSCHEF_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	// The key is optional: servers without auth accept anonymous calls.
	c := &apiClient{
		baseURL: strings.TrimRight(apiURL, "/"),
		apiKey:  os.Getenv("SOUSCHEF_API_KEY"),
		http:    &http.Client{Timeout: 300 * time.Second},
	}

	s := server.NewMCPServer(
		"souschef",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	searchTool := mcp.NewTool("search_recipes",
		mcp.WithDescription("Search recipe sites and return structured recipes with ingredients, instructions, times and ratings."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("What to cook, e.g. 'chicken tikka masala' or 'vegan brownies'"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of recipes (default: 10, max: 50)"),
		),
		mcp.WithString("difficulty",
			mcp.Description("Only return recipes with this difficulty"),
			mcp.Enum("easy", "medium", "hard"),
		),
		mcp.WithBoolean("include_videos",
			mcp.Description("Attach tutorial video links (default: false, slower when enabled)"),
		),
	)
	s.AddTool(searchTool, handleSearch(c))

	scrapeTool := mcp.NewTool("scrape_recipe",
		mcp.WithDescription("Extract a structured recipe from a single recipe page URL."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the recipe page"),
		),
	)
	s.AddTool(scrapeTool, handleScrapeRecipe(c))

	videoTool := mcp.NewTool("find_videos",
		mcp.WithDescription("Find cooking tutorial videos for a dish."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Dish or recipe name"),
		),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of videos (default: 5, max: 20)"),
		),
	)
	s.AddTool(videoTool, handleFindVideos(c))

	batchTool := mcp.NewTool("batch_scrape",
		mcp.WithDescription("Extract recipes from many recipe page URLs in parallel. Returns every recipe found and the URLs that failed."),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("List of recipe page URLs"),
		),
	)
	s.AddTool(batchTool, handleBatchScrape(c))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiClient calls the souschef HTTP API.
type apiClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// get issues a GET request and decodes a 2xx JSON body into dst.
func (c *apiClient) get(ctx context.Context, path string, query url.Values, dst any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, dst)
}

// post sends payload as JSON and decodes a 2xx JSON body into dst.
func (c *apiClient) post(ctx context.Context, path string, payload, dst any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, dst)
}

func (c *apiClient) do(req *http.Request, dst any) error {
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var apiErr models.ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != nil {
			return fmt.Errorf("[%s] %s", apiErr.Error.Code, apiErr.Error.Message)
		}
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// pollBatch polls a batch job until its status is no longer "processing"
// or ctx is cancelled.
func (c *apiClient) pollBatch(ctx context.Context, id string) (*models.BatchStatusResponse, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			var status models.BatchStatusResponse
			if err := c.get(ctx, "/api/v1/batch/"+url.PathEscape(id), nil, &status); err != nil {
				return nil, err
			}
			if status.Status != models.BatchProcessing {
				return &status, nil
			}
		}
	}
}

func handleSearch(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}

		params := url.Values{"q": {query}}
		params.Set("limit", strconv.Itoa(request.GetInt("limit", 10)))
		params.Set("include_videos", strconv.FormatBool(request.GetBool("include_videos", false)))
		if difficulty := request.GetString("difficulty", ""); difficulty != "" {
			params.Set("difficulty", difficulty)
		}

		var resp models.SearchResponse
		if err := c.get(ctx, "/api/v1/search", params, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Found %d recipes for %q\n\n", resp.TotalFound, resp.Query)
		for i, r := range resp.Recipes {
			fmt.Fprintf(&sb, "--- [%d] ---\n%s\n", i+1, formatRecipe(r))
		}
		for _, v := range resp.VideoResults {
			fmt.Fprintf(&sb, "Video: %s %s\n", v.Title, v.URL)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleScrapeRecipe(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		target, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		params := url.Values{"url": {target}, "include_related": {"false"}}
		var resp models.RecipeDetailResponse
		if err := c.get(ctx, "/api/v1/recipe", params, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("scrape failed: %v", err)), nil
		}
		return mcp.NewToolResultText(formatRecipe(resp.Recipe)), nil
	}
}

func handleFindVideos(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}

		params := url.Values{"query": {query}}
		params.Set("max_results", strconv.Itoa(request.GetInt("max_results", 5)))

		var resp models.VideoSearchResponse
		if err := c.get(ctx, "/api/v1/videos/search", params, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("video search failed: %v", err)), nil
		}
		if len(resp.Videos) == 0 {
			return mcp.NewToolResultText("No videos found."), nil
		}

		var sb strings.Builder
		for i, v := range resp.Videos {
			fmt.Fprintf(&sb, "%d. %s\n   %s\n", i+1, v.Title, v.URL)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleBatchScrape(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		urls, err := request.RequireStringSlice("urls")
		if err != nil {
			return mcp.NewToolResultError("urls is required and must be an array of strings"), nil
		}

		var job models.BatchResponse
		if err := c.post(ctx, "/api/v1/batch/scrape", models.BatchRequest{URLs: urls}, &job); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("batch request failed: %v", err)), nil
		}
		if job.ID == "" {
			return mcp.NewToolResultError("batch job creation failed"), nil
		}

		status, err := c.pollBatch(ctx, job.ID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling batch job failed: %v", err)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Batch %s: %s (%d recipes, %d failed)\n\n", status.ID, status.Status, len(status.Recipes), len(status.FailedURLs))
		for i, r := range status.Recipes {
			fmt.Fprintf(&sb, "--- [%d] ---\n%s\n", i+1, formatRecipe(r))
		}
		for _, u := range status.FailedURLs {
			fmt.Fprintf(&sb, "FAILED: %s\n", u)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

// formatRecipe renders a recipe as plain text for a model to read.
func formatRecipe(r models.Recipe) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\nSource: %s\n", r.Title, r.SourceURL)
	if r.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", r.Description)
	}
	if t := r.TimeInfo; !t.IsZero() {
		fmt.Fprintf(&sb, "Time: prep %s, cook %s, total %s\n", orDash(t.PrepTime), orDash(t.CookTime), orDash(t.TotalTime))
	}
	if r.Servings != "" {
		fmt.Fprintf(&sb, "Servings: %s\n", r.Servings)
	}
	if r.Rating != nil && r.Rating.Value != nil {
		fmt.Fprintf(&sb, "Rating: %.1f\n", *r.Rating.Value)
	}
	if len(r.Ingredients) > 0 {
		sb.WriteString("\nIngredients:\n")
		for _, ing := range r.Ingredients {
			sb.WriteString("- " + ing + "\n")
		}
	}
	if len(r.Instructions) > 0 {
		sb.WriteString("\nInstructions:\n")
		for i, step := range r.Instructions {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, step)
		}
	}
	if r.VideoURL != "" {
		fmt.Fprintf(&sb, "\nVideo: %s\n", r.VideoURL)
	}
	return sb.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
