package main

import "os"

type config struct {
	Port       string
	Env        string
	LogLevel   string
	PublicDir  string
	CORSOrigin string
}

func loadConfig() config {
	return config{
		Port:       getEnv("PORT", "3002"),
		Env:        getEnv("APP_ENV", "dev"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		PublicDir:  getEnv("PUBLIC_DIR", "./public"),
		CORSOrigin: getEnv("CORS_ORIGIN", ""),
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
