package main

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/videocatalog/videocatalog/internal/assistant"
	"github.com/videocatalog/videocatalog/internal/catalog"
	"github.com/videocatalog/videocatalog/internal/diagnostics"
	"github.com/videocatalog/videocatalog/internal/vectorworker"
)

const smokeSampleSize = 5

// buildSmokeSubTests wires the named sub-tests diagnostics.Smoke runs
// against golden fixtures: a small sample of each catalog surface plus a
// presence check for the external tools the pipeline shells out to.
func buildSmokeSubTests(svc *catalog.Service, idx *vectorworker.CosineIndex, embedder vectorworker.EmbedderCapability, docs vectorworker.DocumentSource, dispatcher *assistant.Dispatcher) []diagnostics.SubTest {
	return []diagnostics.SubTest{
		{
			Name: "structureParse",
			Run: func(ctx context.Context) (any, error) {
				page, err := svc.ListInventory(ctx, "", catalog.InventoryFilter{}, catalog.Pagination{Limit: smokeSampleSize})
				if err != nil {
					return nil, err
				}
				return page, nil
			},
		},
		{
			Name: "tvMapping",
			Run: func(ctx context.Context) (any, error) {
				page, err := svc.ListTVSeries(ctx, catalog.Pagination{Limit: smokeSampleSize})
				if err != nil {
					return nil, err
				}
				return page, nil
			},
		},
		{
			Name: "textlitePreview",
			Run: func(ctx context.Context) (any, error) {
				page, err := svc.ListTextLite(ctx, catalog.Pagination{Limit: smokeSampleSize})
				if err != nil {
					return nil, err
				}
				return page, nil
			},
		},
		{
			Name: "ffprobeHeaders",
			Run: func(ctx context.Context) (any, error) {
				_, err := exec.LookPath("ffprobe")
				return map[string]bool{"ffprobe_present": err == nil}, nil
			},
		},
		{
			Name: "frameSampling",
			Run: func(ctx context.Context) (any, error) {
				_, err := exec.LookPath("ffmpeg")
				return map[string]bool{"ffmpeg_present": err == nil}, nil
			},
		},
		{
			Name: "vectorRefresh",
			Run: func(ctx context.Context) (any, error) {
				collected, err := docs.CollectDocuments(ctx, smokeSampleSize)
				if err != nil {
					return nil, err
				}
				if err := vectorworker.Rebuild(ctx, idx, embedder, collected); err != nil {
					return nil, err
				}
				return map[string]int{"indexed": idx.Len()}, nil
			},
		},
		{
			// exportDryRun's TargetPath is the working directory's absolute
			// exports path, which differs per installation, so only the
			// deployment-independent half of the plan is golden-compared.
			Name: "assistantToolDryRun",
			Run: func(ctx context.Context) (any, error) {
				result, err := dispatcher.Dispatch(ctx, assistant.ToolCall{
					Name: assistant.ToolExportDryRun,
					Args: map[string]any{"row_count_estimate": 1},
				})
				if err != nil {
					return nil, err
				}
				plan, ok := result.(assistant.ExportPlan)
				if !ok {
					return nil, fmt.Errorf("assistantToolDryRun: unexpected result type %T", result)
				}
				return map[string]any{"row_count_estimate": plan.RowCount, "columns": plan.Columns}, nil
			},
		},
	}
}
