package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

func must(err error) {
	if err != nil {
		fmt.Println(err)
		panic(err)
	}
}

// target is one board the release is built for.
type target struct {
	arch string
	arm  string
}

var targets = []target{
	{arch: "arm64"},
	{arch: "arm", arm: "7"},
}

func (t target) name() string {
	return "linux-" + t.arch + t.arm
}

var (
	actionFlag  string
	versionFlag string
)

func main() {
	flag.StringVar(&actionFlag, "action", "", "Choose your action: build or release")
	flag.StringVar(&versionFlag, "version", "", "Version to bump (major, minor, patch) or an exact version (e.g. v1.2.3)")

	flag.Parse()

	switch actionFlag {
	case "":
		fmt.Println("An action is required")
		os.Exit(1)

	case "build":
		build(nextVersion())

	case "release":
		v := nextVersion()
		build(v)
		release(v)

	default:
		fmt.Printf("Invalid action: '%s'\n", actionFlag)
		os.Exit(1)
	}
}

func nextVersion() SemanticVersion {
	if versionFlag == "" {
		fmt.Println("--version is required")
		os.Exit(1)
	}

	current := SemanticVersion{}
	if out, err := exec.Command("git", "describe", "--abbrev=0").Output(); err == nil {
		current, err = ParseSemVer(strings.TrimSpace(string(out)))
		must(err)
	}
	fmt.Println("Current version:", current)

	next, err := current.Bump(versionFlag)
	must(err)
	fmt.Println("New version:", next)

	return next
}

func ldflags(v SemanticVersion, commit string, built time.Time) string {
	return strings.Join([]string{
		"-X main.version=" + v.String(),
		fmt.Sprintf("-X main.buildUnixTimestamp=%d", built.Unix()),
		"-X main.commitHash=" + commit,
	}, " ")
}

func build(v SemanticVersion) {
	commit, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	must(err)
	flags := ldflags(v, strings.TrimSpace(string(commit)), time.Now())

	must(os.MkdirAll("dist", 0755))
	for _, t := range targets {
		dir := filepath.Join("dist", "shiftbank-"+v.String()+"-"+t.name())
		must(os.MkdirAll(dir, 0755))

		cmd := exec.Command("go", "build", "-ldflags", flags, "-o", filepath.Join(dir, "shiftbank"), ".")
		cmd.Env = append(os.Environ(), "CGO_ENABLED=0", "GOOS=linux", "GOARCH="+t.arch)
		if t.arm != "" {
			cmd.Env = append(cmd.Env, "GOARM="+t.arm)
		}
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		must(cmd.Run())

		tar := exec.Command("tar", "-czf", dir+".tgz", "-C", "dist", filepath.Base(dir))
		tar.Stderr = os.Stderr
		must(tar.Run())
		fmt.Println("Built", dir+".tgz")
	}
}

func release(v SemanticVersion) {
	archives, err := filepath.Glob(filepath.Join("dist", "shiftbank-"+v.String()+"-*.tgz"))
	must(err)

	args := append([]string{"release", "create", v.String(), "--generate-notes"}, archives...)
	releaseCmd := exec.Command("gh", args...)
	releaseCmd.Stdout = os.Stdout
	releaseCmd.Stderr = os.Stderr
	must(releaseCmd.Run())
}
