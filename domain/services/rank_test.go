package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankTable_Of(t *testing.T) {
	table := NewRankTable(map[string]int64{
		"Newcomer": 0,
		"Regular":  500,
		"Veteran":  2500,
	})

	assert.Equal(t, "Newcomer", table.Of(0))
	assert.Equal(t, "Newcomer", table.Of(499))
	assert.Equal(t, "Regular", table.Of(500))
	assert.Equal(t, "Veteran", table.Of(1_000_000))
}

func TestRankTable_NoMatch(t *testing.T) {
	table := NewRankTable(map[string]int64{"Rich": 1000})
	assert.Equal(t, "", table.Of(10))
	assert.Equal(t, "", NewRankTable(nil).Of(10))
}

func TestRenderTemplate(t *testing.T) {
	vars := TemplateVars{User: "alice", ToUser: "@bob", Count: 7, Channel: "#happyfool"}

	assert.Equal(t, "Hi there!", RenderTemplate("Hi there!", vars))
	assert.Equal(t, "alice hugs bob (7 hugs in #happyfool)",
		RenderTemplate("$(user) hugs $(touser) ($(count) hugs in $(channel))", vars))

	vars.ToUser = ""
	assert.Equal(t, "alice hugs alice", RenderTemplate("$(user) hugs $(touser)", vars))
}
