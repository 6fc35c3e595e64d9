package main

import "time"

const defaultAPIURL = "http://127.0.0.1:8080/api"

// GlobalFlags holds persistent flags shared by all commands
type GlobalFlags struct {
	ConfigPath string
}

type WatchFlags struct {
	Interval time.Duration
	Quiet    bool
}

type ServeFlags struct {
	Listen        string
	MetricsListen string
}

// APIFlags holds the remote daemon connection
type APIFlags struct {
	APIUrl     string
	APITimeout time.Duration
}
