package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateBarChartSVG(t *testing.T) {
	svg := generateBarChartSVG("Predicted Medals", []string{"USA", "A&B"}, []int{100, 50}, 100, "#4a90e2")

	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.True(t, strings.HasSuffix(svg, "</svg>"))
	assert.Equal(t, 2, strings.Count(svg, `fill="#4a90e2"`))
	assert.Contains(t, svg, "A&amp;B")
	// Tallest bar spans the full plot height
	assert.Contains(t, svg, `height="300" fill="#4a90e2"`)
	assert.Contains(t, svg, `height="150" fill="#4a90e2"`)
}
