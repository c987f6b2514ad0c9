package main

import (
	"bytes"
	"embed"
	"github.com/cay-lang/cay/trace"
	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
	"io/fs"
	"path"
	"strings"
	"testing"
)

// embeds the scenario corpus
//
//go:embed scenarios
var scenarioSet embed.FS

func TestScenariosEndToEnd(t *testing.T) {
	files, err := scenarioSet.ReadDir("scenarios")
	assert.NoError(t, err)
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".yml") {
			continue
		}
		testScenario(t, f)
	}
}

func testScenario(t *testing.T, f fs.DirEntry) bool {
	return t.Run(f.Name(), func(t *testing.T) {
		content, err := scenarioSet.ReadFile(path.Join("scenarios", f.Name()))
		assert.NoError(t, err)

		var sc trace.Scenario
		err = yaml.Unmarshal(content, &sc)
		assert.NoError(t, err)
		assert.NotEmpty(t, sc.Name)
		assert.NotEmpty(t, sc.Ops)

		report, err := trace.Run(sc)
		if !assert.NoError(t, err) {
			return
		}
		assert.Zero(t, report.OpenMarks, "scenario left snapshots open")

		rendered := bytes.NewBuffer(nil)
		report.Render(rendered, false)
		assert.Contains(t, rendered.String(), "scenario: "+sc.Name)
	})
}
