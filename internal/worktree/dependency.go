package worktree

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// projectIndex is the minimal shape of project_index.json this package
// reads: an aggregated list of dependency_locations, each project-relative.
type projectIndex struct {
	DependencyLocations []struct {
		Type             string `json:"type"`
		Path             string `json:"path"`
		RequirementsFile string `json:"requirements_file,omitempty"`
		PackageManager   string `json:"package_manager,omitempty"`
	} `json:"dependency_locations"`
}

// GetDependencyConfigs derives §4.3.4 dependency share configs from
// project_index.json (if present), applying the same path-containment
// checks as the original: reject absolute or parent-traversing paths (on
// both POSIX and Windows separator conventions), and verify the resolved
// path stays within the project root. Falls back to a hardcoded
// node_modules config when none are discovered, matching legacy behavior.
func GetDependencyConfigs(projectRoot string) []DependencyShareConfig {
	indexPath := filepath.Join(projectRoot, ".auto-claude", "project_index.json")
	data, err := os.ReadFile(indexPath)
	if err != nil {
		return fallbackDependencyConfigs()
	}

	var idx projectIndex
	if err := json.Unmarshal(data, &idx); err != nil {
		return fallbackDependencyConfigs()
	}

	seen := make(map[string]bool)
	var configs []DependencyShareConfig
	for _, dep := range idx.DependencyLocations {
		if dep.Type == "" || dep.Path == "" {
			continue
		}
		if !isContainedRelPath(dep.Path) {
			continue
		}
		if !resolvedPathContained(projectRoot, dep.Path) {
			continue
		}
		if seen[dep.Path] {
			continue
		}
		seen[dep.Path] = true

		reqFile := dep.RequirementsFile
		if reqFile != "" && (!isContainedRelPath(reqFile) || !resolvedPathContained(projectRoot, reqFile)) {
			reqFile = ""
		}

		strategy, ok := DefaultStrategyMap[dep.Type]
		if !ok {
			strategy = StrategySkip
		}
		configs = append(configs, DependencyShareConfig{
			DepType:          dep.Type,
			Strategy:         strategy,
			SourceRelPath:    dep.Path,
			RequirementsFile: reqFile,
			PackageManager:   dep.PackageManager,
		})
	}

	if len(configs) == 0 {
		return fallbackDependencyConfigs()
	}
	return configs
}

func fallbackDependencyConfigs() []DependencyShareConfig {
	return []DependencyShareConfig{
		{DepType: "node_modules", Strategy: StrategySymlink, SourceRelPath: "node_modules"},
		{DepType: "node_modules", Strategy: StrategySymlink, SourceRelPath: "apps/frontend/node_modules"},
	}
}

// isContainedRelPath rejects absolute paths and parent-traversal segments,
// checked against both POSIX ("/") and Windows ("\") separator
// conventions, since the path may have been recorded on either platform.
func isContainedRelPath(relPath string) bool {
	if filepath.IsAbs(relPath) {
		return false
	}
	if strings.HasPrefix(relPath, "/") || strings.HasPrefix(relPath, `\`) {
		return false
	}
	// Windows drive-letter absolute path, e.g. "C:\foo".
	if len(relPath) >= 2 && relPath[1] == ':' {
		return false
	}
	posixParts := strings.Split(relPath, "/")
	winParts := strings.Split(relPath, `\`)
	for _, p := range posixParts {
		if p == ".." {
			return false
		}
	}
	for _, p := range winParts {
		if p == ".." {
			return false
		}
	}
	return true
}

func resolvedPathContained(projectRoot, relPath string) bool {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return false
	}
	resolved, err := filepath.Abs(filepath.Join(projectRoot, relPath))
	if err != nil {
		return false
	}
	return resolved == root || strings.HasPrefix(resolved, root+string(filepath.Separator))
}

// ShareDependency applies one DependencyShareConfig into the worktree at
// worktreePath, sourcing from projectRoot.
func ShareDependency(ctx context.Context, projectRoot, worktreePath string, cfg DependencyShareConfig) error {
	src := filepath.Join(projectRoot, cfg.SourceRelPath)
	dst := filepath.Join(worktreePath, cfg.SourceRelPath)

	switch cfg.Strategy {
	case StrategySkip:
		return nil
	case StrategySymlink:
		return linkDependency(src, dst)
	case StrategyCopy:
		if _, err := os.Stat(src); os.IsNotExist(err) {
			return nil
		}
		return copyTree(src, dst)
	case StrategyRecreate:
		return recreateVenv(ctx, projectRoot, dst, cfg.RequirementsFile)
	default:
		return fmt.Errorf("unknown dependency strategy %q", cfg.Strategy)
	}
}

func (m *Manager) shareDependencies(ctx context.Context, worktreePath string) error {
	for _, cfg := range GetDependencyConfigs(m.projectRoot) {
		if err := ShareDependency(ctx, m.projectRoot, worktreePath, cfg); err != nil {
			return fmt.Errorf("share dependency %s: %w", cfg.DepType, err)
		}
	}
	return nil
}

func copyTree(src, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return nil
	}
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(src, path)
		if relErr != nil {
			return relErr
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		return os.WriteFile(target, data, info.Mode())
	})
}

// venvInstallTimeout is the §5 timeout for python -m venv / pip install.
const venvInstallTimeout = 120 * time.Second

func recreateVenv(ctx context.Context, projectRoot, dst, requirementsFile string) error {
	if _, err := os.Stat(dst); err == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, venvInstallTimeout)
	defer cancel()

	if err := exec.CommandContext(ctx, "python3", "-m", "venv", dst).Run(); err != nil {
		os.RemoveAll(dst)
		return fmt.Errorf("create venv: %w", err)
	}

	if requirementsFile == "" {
		return nil
	}
	reqPath := filepath.Join(projectRoot, requirementsFile)
	if _, err := os.Stat(reqPath); os.IsNotExist(err) {
		return nil
	}

	pip := filepath.Join(dst, "bin", "pip")
	installCtx, installCancel := context.WithTimeout(context.Background(), venvInstallTimeout)
	defer installCancel()
	if err := exec.CommandContext(installCtx, pip, "install", "-r", reqPath).Run(); err != nil {
		os.RemoveAll(dst)
		return fmt.Errorf("pip install -r %s: %w", requirementsFile, err)
	}
	return nil
}
