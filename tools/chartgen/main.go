package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"html"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/openmohaa/medal-forecast/internal/models"
)

func main() {
	apiURL := flag.String("api", "http://localhost:8080/api/v1", "API base URL")
	outDir := flag.String("out", "web/static/img", "Output directory")
	top := flag.Int("top", 10, "Number of entities to chart")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(*apiURL + "/forecast")
	if err != nil {
		log.Fatalf("Failed to fetch forecast: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("Forecast unavailable: %s", resp.Status)
	}

	var run models.ForecastRun
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		log.Fatalf("Failed to decode forecast: %v", err)
	}
	if len(run.Forecasts) == 0 {
		fmt.Println("Forecast is empty.")
		return
	}

	forecasts := append([]models.Forecast(nil), run.Forecasts...)
	sort.SliceStable(forecasts, func(i, j int) bool {
		return forecasts[i].PredictedTotal > forecasts[j].PredictedTotal
	})
	if len(forecasts) > *top {
		forecasts = forecasts[:*top]
	}

	generateMedalChart(*outDir, "forecast_total.svg", "Predicted Medals (Total)", forecasts,
		func(f models.Forecast) int { return f.PredictedTotal }, "#4a90e2")
	generateMedalChart(*outDir, "forecast_gold.svg", "Predicted Medals (Gold)", forecasts,
		func(f models.Forecast) int { return f.PredictedGold }, "#d4af37")
}

func generateMedalChart(dir, filename, title string, forecasts []models.Forecast, value func(models.Forecast) int, color string) {
	labels := make([]string, 0, len(forecasts))
	values := make([]int, 0, len(forecasts))
	maxVal := 0
	for _, f := range forecasts {
		v := value(f)
		labels = append(labels, f.Entity)
		values = append(values, v)
		if v > maxVal {
			maxVal = v
		}
	}

	svg := generateBarChartSVG(title, labels, values, maxVal, color)
	saveChart(dir, filename, svg)
}

func saveChart(dir, filename string, svg string) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Fatal(err)
	}

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Chart generated: %s\n", path)
}

func generateBarChartSVG(title string, labels []string, values []int, maxVal int, color string) string {
	width := 600
	height := 400
	padding := 50
	barWidth := (width - 2*padding) / len(labels)
	maxBarHeight := height - 2*padding

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<svg width="%d" height="%d" viewBox="0 0 %d %d" xmlns="http://www.w3.org/2000/svg">`, width, height, width, height))

	// Background
	sb.WriteString(`<rect width="100%" height="100%" fill="#1a1a1a" />`)

	// Title
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="30" fill="white" font-family="Arial" font-size="20" text-anchor="middle">%s</text>`, width/2, html.EscapeString(title)))

	for i, val := range values {
		barHeight := 0
		if maxVal > 0 {
			barHeight = val * maxBarHeight / maxVal
		}
		x := padding + i*barWidth
		y := height - padding - barHeight

		sb.WriteString(fmt.Sprintf(`<rect x="%d" y="%d" width="%d" height="%d" fill="%s" rx="4" />`, x+5, y, barWidth-10, barHeight, color))

		// Entity label, rotated
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" fill="white" font-family="Arial" font-size="12" text-anchor="end" transform="rotate(-45 %d %d)">%s</text>`, x+barWidth/2, height-padding+20, x+barWidth/2, height-padding+20, html.EscapeString(labels[i])))

		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" fill="white" font-family="Arial" font-size="10" text-anchor="middle">%d</text>`, x+barWidth/2, y-5, val))
	}

	// X-axis
	sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="white" stroke-width="2" />`, padding, height-padding, width-padding, height-padding))

	sb.WriteString(`</svg>`)
	return sb.String()
}
