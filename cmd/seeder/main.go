package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// sampleHistory is a small multi-country medal table in the default layout
const sampleHistory = `year;country;gold;silver;bronze;total
2012;USA;46;29;29;104
2016;USA;46;37;38;121
2020;USA;39;41;33;113
2012;CHN;38;31;22;91
2016;CHN;26;18;26;70
2020;CHN;38;32;18;88
2012;GBR;29;18;18;65
2016;GBR;27;23;17;67
2020;GBR;22;21;22;65
2012;KEN;2;4;5;11
2016;KEN;6;6;1;13
2020;KEN;4;4;2;10
`

func main() {
	apiURL := flag.String("api", "http://localhost:8080/api/v1", "API base URL")
	file := flag.String("file", "", "Medal history file to upload (defaults to a built-in sample)")
	mode := flag.String("mode", "baseline", "Forecast mode to run after loading: baseline or model")
	flag.Parse()

	payload := []byte(sampleHistory)
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", *file, err)
		}
		payload = data
	}

	client := &http.Client{Timeout: 30 * time.Second}

	status, body := post(client, *apiURL+"/forecast/source", "text/plain", payload)
	fmt.Printf("Load: %d %s\n", status, body)
	if status != http.StatusOK {
		log.Fatalf("Source load failed")
	}

	runURL := fmt.Sprintf("%s/forecast/run?mode=%s&wait=true", *apiURL, *mode)
	status, body = post(client, runURL, "", nil)
	if status != http.StatusOK {
		log.Fatalf("Forecast failed: %d %s", status, body)
	}

	var run struct {
		Mode      string `json:"mode"`
		Degraded  bool   `json:"degraded"`
		Forecasts []struct {
			Entity string `json:"entity"`
			Gold   int    `json:"predicted_gold"`
			Silver int    `json:"predicted_silver"`
			Bronze int    `json:"predicted_bronze"`
			Total  int    `json:"predicted_total"`
		} `json:"forecasts"`
	}
	if err := json.Unmarshal(body, &run); err != nil {
		log.Fatalf("Failed to decode forecast: %v", err)
	}

	fmt.Printf("Forecast (%s, degraded=%v)\n", run.Mode, run.Degraded)
	for _, f := range run.Forecasts {
		fmt.Printf("  %-6s %4d %4d %4d  total %d\n", f.Entity, f.Gold, f.Silver, f.Bronze, f.Total)
	}
}

func post(client *http.Client, url, contentType string, payload []byte) (int, []byte) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("Failed to create request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("Failed to send request: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, body
}
