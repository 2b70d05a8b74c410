package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"cartilla/internal/model"
)

const (
	defaultPlansURL     = "https://www.osde.com.ar/Cartilla/PlanRemote.ashx?metodo=ObtenerPlanesParaCartillaMedicaConNoComercial&r=0.13880617927273597"
	defaultProvincesURL = "https://www.osde.com.ar/Cartilla/ProvinciaRemote.ashx?metodo=ObtenerParaCartillaMedica&busquedaActual=especialidad"
	defaultProvidersURL = "https://www.osde.com.ar/Cartilla/consultaPorEspecialidadRemote.ashx"

	// The directory returns 403 to non-browser agents.
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.3"
)

// PsychologySpecialties is the static specialty table walked for every
// plan and province.
var PsychologySpecialties = []model.Specialty{
	{ID: "1025", Label: "PSICODIAGNÓSTICO"},
	{ID: "810", Label: "PSICOLOGÍA ADULTOS"},
	{ID: "870", Label: "PSICOLOGÍA NIÑOS Y ADOLESCENTES"},
	{ID: "850", Label: "PSICOLOGÍA PAREJA Y FAMILIA"},
	{ID: "841", Label: "PSICOPEDAGOGÍA"},
	{ID: "808", Label: "PSIQUIATRÍA ADULTOS"},
	{ID: "809", Label: "PSIQUIATRÍA NIÑOS Y ADOLESCENTES"},
	{ID: "1026", Label: "EVALUACIÓN NEUROCOGNITIVA PSICOLÓGICA"},
	{ID: "1027", Label: "EVALUACIÓN NEUROPSICOPEDAGÓGICA"},
}

type Config struct {
	PlansURL     string
	ProvincesURL string
	ProvidersURL string
	UserAgent    string

	RequestTimeout time.Duration
	MaxAttempts    int
	RetryDelay     time.Duration

	Specialties []model.Specialty

	OutputDir       string
	MergedFile      string
	MergedDateStamp bool
	ParquetFile     string

	LogLevel    string
	MetricsPort string
	DatabaseURL string
	RedisURL    string

	Resume        bool
	CheckpointTTL time.Duration
}

func Load() *Config {
	// .env from the project root, then the current directory
	_ = godotenv.Load("../../.env")
	_ = godotenv.Load()
	return &Config{
		PlansURL:        getEnv("PLANS_URL", defaultPlansURL),
		ProvincesURL:    getEnv("PROVINCES_URL", defaultProvincesURL),
		ProvidersURL:    getEnv("PROVIDERS_URL", defaultProvidersURL),
		UserAgent:       getEnv("USER_AGENT", defaultUserAgent),
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 5*time.Second),
		MaxAttempts:     getEnvInt("RETRY_ATTEMPTS", 3),
		RetryDelay:      getEnvDuration("RETRY_DELAY", 2*time.Second),
		Specialties:     PsychologySpecialties,
		OutputDir:       getEnv("OUTPUT_DIR", "prestadores"),
		MergedFile:      getEnv("MERGED_FILE", "prestadores_merged.csv"),
		MergedDateStamp: getEnvBool("MERGED_DATE_STAMP", false),
		ParquetFile:     os.Getenv("PARQUET_FILE"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		MetricsPort:     os.Getenv("METRICS_PORT"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		Resume:          getEnvBool("RESUME", false),
		CheckpointTTL:   getEnvDuration("CHECKPOINT_TTL", 72*time.Hour),
	}
}

// MergedPath is the merged output file name, date stamped when enabled.
func (c *Config) MergedPath(now time.Time) string {
	if !c.MergedDateStamp {
		return c.MergedFile
	}
	base := strings.TrimSuffix(c.MergedFile, ".csv")
	return base + "_" + now.Format("2006-01-02") + ".csv"
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getEnvInt(k string, d int) int {
	v, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return d
	}
	return v
}

func getEnvBool(k string, d bool) bool {
	v, err := strconv.ParseBool(os.Getenv(k))
	if err != nil {
		return d
	}
	return v
}

func getEnvDuration(k string, d time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(k))
	if err != nil {
		return d
	}
	return v
}
