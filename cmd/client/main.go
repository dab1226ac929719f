package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"classlens/pkg/scoring"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

type analyzeResponse struct {
	Score   int             `json:"score"`
	Level   string          `json:"level"`
	Details scoring.Details `json:"details"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	TraceID string `json:"trace_id"`
}

func main() {
	url := flag.String("url", "http://localhost:3000/api/v1/engagement/analyze", "analyze endpoint")
	session := flag.String("session", "", "session id for stream tracking")
	image := flag.String("image", "", "frame to analyze, more may follow as arguments")
	timeout := flag.Duration("timeout", 15*time.Second, "request timeout")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	images := flag.Args()
	if *image != "" {
		images = append([]string{*image}, images...)
	}
	if len(images) == 0 {
		fmt.Fprintln(os.Stderr, "usage: client [-url URL] [-session ID] -image frame.jpg [frame.jpg...]")
		os.Exit(2)
	}

	client := &http.Client{Timeout: *timeout}
	failed := false
	for _, path := range images {
		res, err := analyze(client, *url, *session, path)
		if err != nil {
			logger.WithField("image", path).Error(err)
			failed = true
			continue
		}
		printResult(path, res)
	}

	if failed {
		os.Exit(1)
	}
}

func analyze(client *http.Client, url, session, path string) (*analyzeResponse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("image", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if session != "" {
		if err := w.WriteField("session_id", session); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, url, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if jsoniter.Unmarshal(raw, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("%d %s: %s", resp.StatusCode, e.Code, e.Error)
		}
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var res analyzeResponse
	if err := jsoniter.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &res, nil
}

func printResult(path string, r *analyzeResponse) {
	fmt.Printf("%s\n", path)
	fmt.Printf("  score       %3d  %s\n", r.Score, strings.ToUpper(r.Level))
	if !r.Details.FacePresent {
		fmt.Println("  no face detected")
		return
	}
	fmt.Printf("  eye contact %3d  (%s)\n", r.Details.EyeContactScore, r.Details.EyeState)
	fmt.Printf("  head pose   %3d  pitch %.1f yaw %.1f\n", r.Details.HeadPoseScore, r.Details.Pitch, r.Details.Yaw)
	fmt.Printf("  stability   %3d\n", r.Details.AttentionStabilityScore)
}
