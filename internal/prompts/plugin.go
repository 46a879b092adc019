package prompts

import (
	"strings"

	"github.com/ashiqtasdid/pegasus-sub000/internal/types"
)

const (
	// MaxDiagnosticsBytes caps the compiler output quoted in a fix prompt.
	MaxDiagnosticsBytes = 12 * 1024
	// MaxSnapshotBytes caps the file contents quoted in a fix prompt.
	MaxSnapshotBytes = 160 * 1024
)

const generationSystem = `You are an expert Minecraft plugin developer working with the Paper API and Maven.
You answer with a single JSON object and nothing else.`

const fixSystem = `You are an expert Java and Maven engineer repairing a Minecraft Paper plugin that fails to compile.
You answer with a single JSON object describing file operations and nothing else.`

var projectFields = []Field{
	{Name: "name", Type: "string", Required: true, Description: "Plugin name."},
	{Name: "targetVersion", Type: "string", Required: true, Description: "Paper API version, for example 1.20.4."},
	{Name: "files", Type: "[]{path,content,type}", Required: true, Description: "Every file of the Maven project. Paths are relative and use forward slashes."},
	{Name: "dependencies", Type: "[]string", Description: "Extra Maven coordinates, groupId:artifactId:version."},
	{Name: "buildInstructions", Type: "string", Description: "How to build the plugin."},
}

var patchFields = []Field{
	{Name: "description", Type: "string", Required: true, Description: "What the fix changes."},
	{Name: "operations", Type: "[]{kind,path,oldPath,newPath,content,reason}", Required: true, Description: "kind is create, update, delete or rename."},
	{Name: "buildCommands", Type: "[]string", Description: "Commands to verify the fix."},
	{Name: "expectedOutcome", Type: "string", Description: "What the build should report afterwards."},
}

const projectExample = `{
  "name": "HelloPlugin",
  "targetVersion": "1.20.4",
  "files": [
    {"path": "pom.xml", "content": "<project>...</project>", "type": "xml"},
    {"path": "src/main/resources/plugin.yml", "content": "name: HelloPlugin\nmain: com.example.hello.HelloPlugin\nversion: 1.0.0\napi-version: '1.20'\n", "type": "yml"}
  ],
  "dependencies": [],
  "buildInstructions": "mvn clean package"
}`

const patchExample = `{
  "description": "Import the missing Bukkit class",
  "operations": [
    {"kind": "update", "path": "src/main/java/com/example/hello/HelloPlugin.java", "content": "package com.example.hello;\n...", "reason": "cannot find symbol: class Bukkit"}
  ],
  "buildCommands": ["mvn clean package"],
  "expectedOutcome": "BUILD SUCCESS"
}`

// Generation renders the prompts for creating a project from req.
func Generation(req types.GenerationRequest) (system, user string, err error) {
	version := req.TargetVersion
	if version == "" {
		version = types.DefaultTargetVersion
	}
	user, err = Render(Spec{
		Purpose:      "Generate a complete, compilable Minecraft Paper plugin as a Maven project.",
		Background:   "The project is written to disk exactly as returned and built with `mvn clean package`.",
		OutputFields: projectFields,
		Constraints: []string{
			"Include pom.xml, src/main/resources/plugin.yml and every Java source file.",
			"Use the Paper API repository and a provided-scope paper-api dependency for the target version.",
			"Escape newlines and quotes inside JSON strings.",
		},
		Rules: []string{
			"Do not use absolute paths or '..' segments.",
			"The main class in plugin.yml must match a generated Java class.",
		},
		OutputFormat: "A single JSON object. No markdown fences and no commentary.",
		Example:      projectExample,
	}, map[string]any{
		"pluginName":    req.PluginName,
		"targetVersion": version,
		"requirements":  req.Requirements,
	})
	return generationSystem, user, err
}

// Fix renders the prompts for repairing project after a failed build.
func Fix(project types.Project, result types.CompilationResult, iteration int) (system, user string, err error) {
	user, err = Render(Spec{
		Purpose:      "Propose the smallest set of file operations that makes the project compile.",
		Background:   "The previous build failed. The diagnostics and the current project files are in INPUT.",
		OutputFields: patchFields,
		Constraints: []string{
			"create and update carry the complete new file content.",
			"Every operation needs a non-empty reason.",
			"Escape newlines and quotes inside JSON strings.",
		},
		Rules: []string{
			"Only touch files that are needed for the fix.",
			"Do not use absolute paths or '..' segments.",
		},
		OutputFormat: "A single JSON object. No markdown fences and no commentary.",
		Example:      patchExample,
	}, map[string]any{
		"iteration":     iteration,
		"failure":       string(result.Failure),
		"diagnostics":   Clip(result.Diagnostics(), MaxDiagnosticsBytes),
		"targetVersion": project.TargetVersion,
		"files":         Snapshot(project, MaxSnapshotBytes),
	})
	return fixSystem, user, err
}

// Snapshot lists project files for a prompt. Manifests come first, then
// sources; files that would exceed budget are listed with empty content.
func Snapshot(p types.Project, budget int) []types.File {
	ordered := make([]types.File, 0, len(p.Files))
	var rest []types.File
	for _, f := range p.Files {
		if isManifest(f.Path) {
			ordered = append(ordered, f)
		} else {
			rest = append(rest, f)
		}
	}
	ordered = append(ordered, rest...)

	used := 0
	for i, f := range ordered {
		if used+len(f.Content) > budget {
			ordered[i].Content = ""
			continue
		}
		used += len(f.Content)
	}
	return ordered
}

func isManifest(p string) bool {
	return p == "pom.xml" || strings.HasSuffix(p, "plugin.yml")
}

// Clip keeps the last limit bytes of s, cut at a line boundary when possible.
func Clip(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	s = s[len(s)-limit:]
	if i := strings.IndexByte(s, '\n'); i >= 0 && i < len(s)-1 {
		s = s[i+1:]
	}
	return s
}
