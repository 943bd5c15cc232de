package hcl

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// MergeHCLFiles combines multiple HCL files into a single HCL file body.
// This mimics how Terraform loads multiple .tf files in a directory.
func MergeHCLFiles(filePaths []string) (*hcl.File, error) {
	parser := hclparse.NewParser()
	var mergedContent bytes.Buffer

	for _, path := range filePaths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file %s: %w", path, err)
		}

		mergedContent.Write(content)
		mergedContent.WriteString("\n")
	}

	file, diags := parser.ParseHCL(mergedContent.Bytes(), "merged.hcl")
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse merged HCL content: %s", diags.Error())
	}

	return file, nil
}

// ParseHCLDirectory merges all .hcl files in a directory into a single
// analysis configuration, so a study can keep its time range, movement
// profile, and pair selections in separate files.
func ParseHCLDirectory(dirPath string) (*AnalysisConfig, error) {
	var hclFiles []string
	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && (strings.HasSuffix(info.Name(), ".hcl") || strings.HasSuffix(info.Name(), ".tf")) {
			hclFiles = append(hclFiles, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory %s: %w", dirPath, err)
	}

	if len(hclFiles) == 0 {
		return nil, fmt.Errorf("no HCL files found in directory %s", dirPath)
	}

	mergedFile, err := MergeHCLFiles(hclFiles)
	if err != nil {
		return nil, err
	}

	return parseAnalysisFromFile(mergedFile)
}
