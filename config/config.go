package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the server reads from the environment.
type Config struct {
	Server    ServerConfig
	WebSocket WebSocketConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Redis     RedisConfig
	Room      RoomConfig
	LogLevel  string
}

type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowOrigins    string
}

type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	PingInterval    time.Duration
	WriteTimeout    time.Duration
	MaxMessageSize  int64
}

type DatabaseConfig struct {
	User     string
	Password string
	Host     string
	Port     string
	Name     string
	SSLMode  string
}

type AuthConfig struct {
	JWTSecret string
}

// RedisConfig configures the optional presence mirror.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RoomConfig tunes the in-memory room registry. A zero SnapshotInterval disables server-side snapshots.
type RoomConfig struct {
	SnapshotInterval time.Duration
}

// Load reads the .env file (if any) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables from OS")
	}

	return &Config{
		Server: ServerConfig{
			Addr:            getEnv("SERVER_ADDR", ":8080"),
			ReadTimeout:     getDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowOrigins:    getEnv("CORS_ALLOW_ORIGINS", "*"),
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getInt("WS_READ_BUFFER_SIZE", 1024),
			WriteBufferSize: getInt("WS_WRITE_BUFFER_SIZE", 1024),
			SendBufferSize:  getInt("WS_SEND_BUFFER_SIZE", 256),
			PingInterval:    getDuration("WS_PING_INTERVAL", 30*time.Second),
			WriteTimeout:    getDuration("WS_WRITE_TIMEOUT", 10*time.Second),
			MaxMessageSize:  int64(getInt("WS_MAX_MESSAGE_SIZE", 4<<20)),
		},
		Database: DatabaseConfig{
			User:     strings.TrimSpace(getEnv("DB_USER", "postgres")),
			Password: strings.TrimSpace(getEnv("DB_PASSWORD", "")),
			Host:     strings.TrimSpace(getEnv("DB_HOST", "localhost")),
			Port:     strings.TrimSpace(getEnv("DB_PORT", "5432")),
			Name:     strings.TrimSpace(getEnv("DB_NAME", "satupapan")),
			SSLMode:  getEnv("DB_SSLMODE", "require"),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
		},
		Redis: RedisConfig{
			Enabled:  getBool("REDIS_ENABLED", false),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
			TTL:      getDuration("REDIS_PRESENCE_TTL", 60*time.Second),
		},
		Room: RoomConfig{
			SnapshotInterval: getDuration("ROOM_SNAPSHOT_INTERVAL", 0),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

// getDuration accepts Go duration strings; a bare number is read as seconds.
func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
