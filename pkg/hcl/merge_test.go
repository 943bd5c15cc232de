package hcl

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airmood/go-exposure-timeline/pkg/temporal"
)

func TestHCLDirectoryMerging(t *testing.T) {
	t.Run("Split Directory", func(t *testing.T) {
		// The split fixtures spread one analysis across three files
		config, err := ParseHCLDirectory("testdata/split")
		require.NoError(t, err)

		jsonContent, err := os.ReadFile("testdata/split_merged.json")
		require.NoError(t, err)

		var expected temporal.AnalysisRequest
		err = json.Unmarshal(jsonContent, &expected)
		require.NoError(t, err)

		AssertRequestsEqual(t, &expected, &config.Request)
		assert.True(t, config.Tolerant)
	})

	t.Run("Empty Directory", func(t *testing.T) {
		_, err := ParseHCLDirectory(t.TempDir())
		assert.ErrorContains(t, err, "no HCL files found")
	})
}

func TestMergeHCLFiles(t *testing.T) {
	dir := t.TempDir()
	studyPath := filepath.Join(dir, "study.hcl")
	rangePath := filepath.Join(dir, "range.hcl")
	require.NoError(t, os.WriteFile(studyPath, []byte("study_id = \"aq-merge\"\n"), 0o644))
	require.NoError(t, os.WriteFile(rangePath, []byte("granularity = \"week\"\n"), 0o644))

	file, err := MergeHCLFiles([]string{studyPath, rangePath})
	require.NoError(t, err)

	config, err := parseAnalysisFromFile(file)
	require.NoError(t, err)
	assert.Equal(t, "aq-merge", config.Request.StudyID)
	assert.Equal(t, "week", config.Request.Granularity)
}

func TestMergeHCLFilesMissingFile(t *testing.T) {
	_, err := MergeHCLFiles([]string{filepath.Join(t.TempDir(), "absent.hcl")})
	assert.ErrorContains(t, err, "failed to read file")
}
