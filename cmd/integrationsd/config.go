package main

import (
	"context"
	"os"
	"strings"
)

// envRawConfigLoader maps process environment variables onto the nested raw
// config document the provider layers over defaults. Only variables that are
// actually set make it into the document, so defaults survive.
type envRawConfigLoader struct{}

func (envRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	raw := map[string]any{}

	setIfPresent(raw, "service_name", "SERVICE_NAME")
	setIfPresent(raw, "dashboard_path", "DASHBOARD_PATH")

	google := map[string]any{}
	setIfPresent(google, "client_id", "GOOGLE_CLIENT_ID")
	setIfPresent(google, "client_secret", "GOOGLE_CLIENT_SECRET")
	setIfPresent(google, "redirect_uri", "GOOGLE_REDIRECT_URI")
	if len(google) > 0 {
		raw["google"] = google
	}

	uploads := map[string]any{}
	setIfPresent(uploads, "cloud_name", "CLOUDINARY_CLOUD_NAME")
	setIfPresent(uploads, "api_key", "CLOUDINARY_API_KEY")
	setIfPresent(uploads, "api_secret", "CLOUDINARY_API_SECRET")
	setIfPresent(uploads, "default_folder", "CLOUDINARY_DEFAULT_FOLDER")
	if folders := strings.TrimSpace(os.Getenv("CLOUDINARY_ALLOWED_FOLDERS")); folders != "" {
		entries := []string{}
		for _, entry := range strings.Split(folders, ",") {
			if trimmed := strings.TrimSpace(entry); trimmed != "" {
				entries = append(entries, trimmed)
			}
		}
		if len(entries) > 0 {
			uploads["allowed_folders"] = entries
		}
	}
	if len(uploads) > 0 {
		raw["uploads"] = uploads
	}

	return raw, nil
}

func setIfPresent(target map[string]any, key string, envName string) {
	if value := strings.TrimSpace(os.Getenv(envName)); value != "" {
		target[key] = value
	}
}

func envOr(name string, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value
	}
	return fallback
}
