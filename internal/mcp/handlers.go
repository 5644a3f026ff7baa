package mcp

import (
	"context"
	"fmt"
	"sort"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/takeshy/sentryrelease/internal/cleanup"
)

// handleListAssets handles the list_assets tool
func (s *Server) handleListAssets(ctx context.Context, req *mcp.CallToolRequest, input ListAssetsInput) (*mcp.CallToolResult, ListAssetsOutput, error) {
	output := ListAssetsOutput{Upload: []AssetInfo{}, Delete: []string{}}

	c, err := discover(input.OutputDir)
	if err != nil {
		return nil, output, err
	}

	settings := s.plugin.Settings()
	for _, f := range s.plugin.Candidates(c) {
		output.Upload = append(output.Upload, AssetInfo{
			Name:         f.Name,
			Path:         f.Path,
			UploadedName: settings.URLPrefix + f.Name,
		})
	}
	for _, name := range c.Names() {
		if settings.Deletable(name) {
			output.Delete = append(output.Delete, name)
		}
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%d files to upload, %d source maps to delete", len(output.Upload), len(output.Delete))},
		},
	}, output, nil
}

// handleCreateRelease handles the create_release tool
func (s *Server) handleCreateRelease(ctx context.Context, req *mcp.CallToolRequest, input CreateReleaseInput) (*mcp.CallToolResult, CreateReleaseOutput, error) {
	settings := s.plugin.Settings()
	output := CreateReleaseOutput{Release: settings.Release, Projects: settings.Projects}

	if err := s.plugin.CreateRelease(ctx); err != nil {
		output.Error = err.Error()
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: fmt.Sprintf("Release creation failed: %v", err)},
			},
		}, output, nil
	}

	output.Success = true
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Created release '%s'", settings.Release)},
		},
	}, output, nil
}

// handleUploadSourceMaps handles the upload_sourcemaps tool
func (s *Server) handleUploadSourceMaps(ctx context.Context, req *mcp.CallToolRequest, input UploadSourceMapsInput) (*mcp.CallToolResult, UploadSourceMapsOutput, error) {
	output := UploadSourceMapsOutput{Release: s.plugin.Settings().Release, Uploaded: []string{}}

	c, err := discover(input.OutputDir)
	if err != nil {
		return nil, output, err
	}

	if !input.SkipRelease {
		if err := s.plugin.CreateRelease(ctx); err != nil {
			output.Error = err.Error()
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					&mcp.TextContent{Text: fmt.Sprintf("Release creation failed: %v", err)},
				},
			}, output, nil
		}
	}

	results := s.plugin.Upload(ctx, s.plugin.Candidates(c))
	for _, r := range results {
		if r.Error != nil {
			output.Failed = append(output.Failed, r.Error.Error())
			continue
		}
		output.Uploaded = append(output.Uploaded, r.UploadedName)
	}
	sort.Strings(output.Uploaded)

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Uploaded %d files to release '%s' (%d failed)", len(output.Uploaded), output.Release, len(output.Failed))},
		},
	}, output, nil
}

// handleCleanSourceMaps handles the clean_sourcemaps tool
func (s *Server) handleCleanSourceMaps(ctx context.Context, req *mcp.CallToolRequest, input CleanSourceMapsInput) (*mcp.CallToolResult, CleanSourceMapsOutput, error) {
	output := CleanSourceMapsOutput{Deleted: []string{}}

	c, err := discover(input.OutputDir)
	if err != nil {
		return nil, output, err
	}

	deleted, errs := cleanup.DeleteLocalSourceMaps(c, s.plugin.Settings().DeletePattern)
	output.Deleted = append(output.Deleted, deleted...)
	for _, err := range errs {
		output.Errors = append(output.Errors, err.Error())
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Deleted %d source maps (%d errors)", len(output.Deleted), len(output.Errors))},
		},
	}, output, nil
}
