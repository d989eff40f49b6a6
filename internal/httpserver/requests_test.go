package httpserver

import (
	"testing"

	"github.com/videocatalog/videocatalog/internal/catalog"
	"github.com/videocatalog/videocatalog/internal/models"
	"github.com/videocatalog/videocatalog/internal/validation"
)

func TestPlaylistBuildRequestValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     playlistBuildRequest
		wantErr bool
	}{
		{"missing strategy", playlistBuildRequest{}, true},
		{"unknown strategy", playlistBuildRequest{Strategy: "shuffle"}, true},
		{"weighted_random accepted", playlistBuildRequest{Strategy: catalog.StrategyWeightedRandom}, false},
		{"quality accepted", playlistBuildRequest{Strategy: catalog.StrategySortByQuality}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.ValidateStruct(&tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStruct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPlaylistExportRequestValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     playlistExportRequest
		wantErr bool
	}{
		{"empty movies rejected", playlistExportRequest{Format: "m3u"}, true},
		{"unsupported format rejected", playlistExportRequest{Movies: []models.Movie{{}}, Format: "json"}, true},
		{"m3u accepted", playlistExportRequest{Movies: []models.Movie{{}}, Format: "m3u"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.ValidateStruct(&tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStruct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAssistantAskRequestValidation(t *testing.T) {
	budget := 5
	tooMuch := 500
	tests := []struct {
		name    string
		req     assistantAskRequest
		wantErr bool
	}{
		{"empty question rejected", assistantAskRequest{}, true},
		{"question only accepted", assistantAskRequest{Question: "what movies are unwatched?"}, false},
		{"tool budget in range accepted", assistantAskRequest{Question: "q", ToolBudget: &budget}, false},
		{"tool budget out of range rejected", assistantAskRequest{Question: "q", ToolBudget: &tooMuch}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.ValidateStruct(&tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStruct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestJobEnqueueRequestValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     jobEnqueueRequest
		wantErr bool
	}{
		{"missing kind and resource rejected", jobEnqueueRequest{}, true},
		{"unknown resource rejected", jobEnqueueRequest{Kind: "vectors_refresh", Resource: "gpu"}, true},
		{"known resource accepted", jobEnqueueRequest{Kind: "vectors_refresh", Resource: models.ResourceLightCPU}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.ValidateStruct(&tt.req)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStruct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
