// SPDX-License-Identifier: MIT
package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"
)

// defaultHealthcheckPort mirrors the daemon's listen address so the
// Docker HEALTHCHECK keeps working when JELLYPATROL_LISTEN is changed.
func defaultHealthcheckPort() int {
	listen := os.Getenv("JELLYPATROL_LISTEN")
	if listen == "" {
		return 8080
	}
	_, portStr, err := net.SplitHostPort(listen)
	if err != nil {
		return 8080
	}
	if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
		return port
	}
	return 8080
}

func runHealthcheckCLI(args []string) int {
	fs := flag.NewFlagSet("healthcheck", flag.ExitOnError)
	mode := fs.String("mode", "ready", "healthcheck mode: ready (default) or live")
	port := fs.Int("port", defaultHealthcheckPort(), "API port to check")
	timeout := fs.Duration("timeout", 5*time.Second, "check timeout")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing healthcheck flags: %v\n", err)
		return 1
	}

	path := "/healthz"
	if *mode == "ready" {
		path = "/readyz"
	}

	url := fmt.Sprintf("http://localhost:%d%s", *port, path)
	client := http.Client{
		Timeout: *timeout,
	}

	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Healthcheck failed (network): %v\n", err)
		return 1
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Healthcheck failed (status): %d %s\n", resp.StatusCode, resp.Status)
		return 1
	}

	fmt.Printf("Healthcheck successful (%s)\n", *mode)
	return 0
}
