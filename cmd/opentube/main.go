package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func main() {
	baseURL := flag.String("server", envOr("OPENTUBE_SERVER_URL", "http://127.0.0.1:8080"), "server URL (ex: http://127.0.0.1:8080)")
	timeout := flag.Duration("timeout", 10*time.Second, "HTTP timeout")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: opentube [health|version|subscriptions|videos|upnext]")
		os.Exit(2)
	}

	client := &http.Client{Timeout: *timeout}

	switch args[0] {
	case "health":
		run(client, *baseURL+"/api/v1/health")
	case "version":
		run(client, *baseURL+"/api/v1/version")
	case "subscriptions":
		run(client, *baseURL+"/api/v1/subscriptions/")
	case "videos":
		run(client, *baseURL+"/api/v1/videos/")
	case "upnext":
		run(client, *baseURL+"/api/v1/videos/upnext")
	default:
		fmt.Fprintln(os.Stderr, "Unknown command:", args[0])
		os.Exit(2)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func run(client *http.Client, url string) {
	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	var pretty any
	if err := json.Unmarshal(body, &pretty); err == nil {
		out, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Println(string(out))
	} else {
		fmt.Println(string(body))
	}

	if resp.StatusCode >= 400 {
		os.Exit(1)
	}
}
