package structured

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/ashiqtasdid/pegasus-sub000/internal/types"
)

const (
	fallbackClassName = "GeneratedPlugin"
	fallbackGroupID   = "com.pegasus"
	paperRepoURL      = "https://repo.papermc.io/repository/maven-public/"
)

// pluginDescriptor is the plugin.yml document Paper/Bukkit loads.
type pluginDescriptor struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Main        string `yaml:"main"`
	APIVersion  string `yaml:"api-version"`
	Description string `yaml:"description,omitempty"`
	Author      string `yaml:"author,omitempty"`
}

// Fallback builds a minimal plugin that compiles from req alone. It makes no
// model call and the same request always yields the same project.
func Fallback(req types.GenerationRequest) types.Project {
	version := defaultVersion(req)
	class := JavaClassName(req.PluginName)
	pkg := fallbackGroupID + "." + JavaPackageSegment(req.PluginName)
	name := strings.TrimSpace(req.PluginName)
	if name == "" {
		name = class
	}

	files := []types.File{
		{Path: "pom.xml", Content: renderPOM(class, version), Type: "xml"},
		{Path: "src/main/resources/plugin.yml", Content: renderPluginYML(class, pkg+"."+class, version, req), Type: "yml"},
		{
			Path:    "src/main/java/" + strings.ReplaceAll(pkg, ".", "/") + "/" + class + ".java",
			Content: renderMainClass(pkg, class),
			Type:    "java",
		},
	}
	return types.Project{
		Name:              name,
		TargetVersion:     version,
		Files:             files,
		Dependencies:      []string{"io.papermc.paper:paper-api:" + version + "-R0.1-SNAPSHOT"},
		BuildInstructions: "mvn -B clean package",
	}
}

// JavaClassName converts a plugin name into an UpperCamelCase Java identifier.
func JavaClassName(name string) string {
	var b strings.Builder
	upper := true
	for _, r := range name {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	out := b.String()
	if out == "" {
		return fallbackClassName
	}
	if unicode.IsDigit(rune(out[0])) {
		out = "Plugin" + out
	}
	if shadowedTypes[out] {
		out += "Plugin"
	}
	return out
}

// shadowedTypes are simple names the generated main class refers to; a class
// with one of these names would hide the type it needs.
var shadowedTypes = map[string]bool{
	"JavaPlugin": true,
	"Override":   true,
	"Object":     true,
	"String":     true,
	"System":     true,
}

// JavaPackageSegment converts a plugin name into a lowercase package segment.
func JavaPackageSegment(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		return strings.ToLower(fallbackClassName)
	}
	if unicode.IsDigit(rune(out[0])) || javaKeywords[out] {
		out = "p" + out
	}
	return out
}

var javaKeywords = map[string]bool{
	"abstract": true, "boolean": true, "break": true, "byte": true, "case": true,
	"catch": true, "char": true, "class": true, "const": true, "continue": true,
	"default": true, "do": true, "double": true, "else": true, "enum": true,
	"extends": true, "final": true, "finally": true, "float": true, "for": true,
	"goto": true, "if": true, "implements": true, "import": true, "instanceof": true,
	"int": true, "interface": true, "long": true, "native": true, "new": true,
	"package": true, "private": true, "protected": true, "public": true, "return": true,
	"short": true, "static": true, "strictfp": true, "super": true, "switch": true,
	"synchronized": true, "this": true, "throw": true, "throws": true, "transient": true,
	"try": true, "void": true, "volatile": true, "while": true,
}

// apiVersion trims a full server version ("1.20.4") to major.minor.
func apiVersion(version string) string {
	parts := strings.SplitN(version, ".", 3)
	if len(parts) >= 2 {
		return parts[0] + "." + parts[1]
	}
	return version
}

// javaRelease picks the JDK level Paper requires for version.
func javaRelease(version string) int {
	parts := strings.Split(version, ".")
	nums := make([]int, 3)
	for i := 0; i < len(parts) && i < 3; i++ {
		n, err := strconv.Atoi(parts[i])
		if err != nil {
			return 17
		}
		nums[i] = n
	}
	if nums[0] > 1 || nums[1] > 20 || (nums[1] == 20 && nums[2] >= 5) {
		return 21
	}
	return 17
}

func renderPluginYML(name, main, version string, req types.GenerationRequest) string {
	desc := pluginDescriptor{
		Name:       name,
		Version:    "1.0.0",
		Main:       main,
		APIVersion: apiVersion(version),
		Author:     strings.TrimSpace(req.UserID),
	}
	if r := strings.TrimSpace(req.Requirements); r != "" {
		desc.Description = firstLine(r, 120)
	}
	out, err := yaml.Marshal(desc)
	if err != nil {
		return fmt.Sprintf("name: %s\nversion: 1.0.0\nmain: %s\napi-version: '%s'\n", name, main, apiVersion(version))
	}
	return string(out)
}

func firstLine(s string, limit int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > limit {
		s = string(r[:limit])
	}
	return s
}

func renderPOM(class, version string) string {
	artifact := strings.ToLower(class)
	release := javaRelease(version)
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<project xmlns="http://maven.apache.org/POM/4.0.0"
         xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"
         xsi:schemaLocation="http://maven.apache.org/POM/4.0.0 http://maven.apache.org/xsd/maven-4.0.0.xsd">
    <modelVersion>4.0.0</modelVersion>

    <groupId>%[1]s</groupId>
    <artifactId>%[2]s</artifactId>
    <version>1.0.0</version>
    <packaging>jar</packaging>

    <properties>
        <maven.compiler.release>%[3]d</maven.compiler.release>
        <project.build.sourceEncoding>UTF-8</project.build.sourceEncoding>
    </properties>

    <repositories>
        <repository>
            <id>papermc</id>
            <url>%[4]s</url>
        </repository>
    </repositories>

    <dependencies>
        <dependency>
            <groupId>io.papermc.paper</groupId>
            <artifactId>paper-api</artifactId>
            <version>%[5]s-R0.1-SNAPSHOT</version>
            <scope>provided</scope>
        </dependency>
    </dependencies>

    <build>
        <finalName>%[6]s</finalName>
        <plugins>
            <plugin>
                <groupId>org.apache.maven.plugins</groupId>
                <artifactId>maven-compiler-plugin</artifactId>
                <version>3.11.0</version>
            </plugin>
        </plugins>
    </build>
</project>
`, fallbackGroupID, artifact, release, paperRepoURL, version, class)
}

func renderMainClass(pkg, class string) string {
	return fmt.Sprintf(`package %[1]s;

import org.bukkit.plugin.java.JavaPlugin;

public final class %[2]s extends JavaPlugin {

    @Override
    public void onEnable() {
        getLogger().info("%[2]s enabled");
    }

    @Override
    public void onDisable() {
        getLogger().info("%[2]s disabled");
    }
}
`, pkg, class)
}
