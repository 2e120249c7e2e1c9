package config

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	ConfigDir  = ".varman"
	ConfigFile = "varman.json"

	DefaultListenPort = 19850
	DefaultOrgID      = "1"
	DefaultOrgName    = "Main Org."

	ServePidFile = "serve.pid"
	ServeLogFile = "serve.log"
	AuditLogFile = "audit.jsonl"
	DataFileName = "variables.json"

	CurrentConfigVersion = 1
)

// Settings is the top-level structure stored in varman.json. It identifies
// the backend to talk to and the caller on whose behalf the page runs.
type Settings struct {
	Version    int    `json:"version"`
	ServerURL  string `json:"server_url,omitempty"`
	OrgID      string `json:"org_id,omitempty"`
	OrgName    string `json:"org_name,omitempty"`
	UserID     string `json:"user_id,omitempty"`
	UserLogin  string `json:"user_login,omitempty"`
	ListenPort int    `json:"listen_port,omitempty"`
	DataFile   string `json:"data_file,omitempty"`
	NATSURL    string `json:"nats_url,omitempty"`
}

// Keys lists the settings accepted by Set, in display order.
var Keys = []string{
	"server_url",
	"org_id",
	"org_name",
	"user_id",
	"user_login",
	"listen_port",
	"data_file",
	"nats_url",
}

// withDefaults returns a copy with empty fields filled in.
func (s Settings) withDefaults() Settings {
	if s.ListenPort == 0 {
		s.ListenPort = DefaultListenPort
	}
	if s.ServerURL == "" {
		s.ServerURL = fmt.Sprintf("http://127.0.0.1:%d", s.ListenPort)
	}
	if s.OrgID == "" {
		s.OrgID = DefaultOrgID
	}
	if s.OrgName == "" {
		s.OrgName = DefaultOrgName
	}
	return s
}

// Get returns the string form of a setting.
func (s Settings) Get(key string) (string, error) {
	switch key {
	case "server_url":
		return s.ServerURL, nil
	case "org_id":
		return s.OrgID, nil
	case "org_name":
		return s.OrgName, nil
	case "user_id":
		return s.UserID, nil
	case "user_login":
		return s.UserLogin, nil
	case "listen_port":
		return strconv.Itoa(s.ListenPort), nil
	case "data_file":
		return s.DataFile, nil
	case "nats_url":
		return s.NATSURL, nil
	}
	return "", fmt.Errorf("unknown setting %q", key)
}

// set assigns one setting from its string form.
func (s *Settings) set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "server_url":
		s.ServerURL = strings.TrimSuffix(value, "/")
	case "org_id":
		s.OrgID = value
	case "org_name":
		s.OrgName = value
	case "user_id":
		s.UserID = value
	case "user_login":
		s.UserLogin = value
	case "listen_port":
		if value == "" {
			s.ListenPort = 0
			return nil
		}
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("listen_port: %w", err)
		}
		if port < 1024 || port > 65535 {
			return fmt.Errorf("port must be between 1024 and 65535")
		}
		s.ListenPort = port
	case "data_file":
		s.DataFile = value
	case "nats_url":
		s.NATSURL = value
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}
