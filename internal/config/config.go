package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"SpotMap-App/internal/domain/model"
)

// スポット取得元
const (
	SpotSourceSupabase = "supabase"
	SpotSourcePostgres = "postgres"
)

// Config アプリケーション全体の設定
type Config struct {
	Port               string
	SpotSource         string
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseDBPassword string
	Clustering         ClusteringConfig
}

// ClusteringConfig クラスタリングの調整値（YAMLファイルで上書き可能）
type ClusteringConfig struct {
	RegionEpsilon  float64          `yaml:"region_epsilon"`
	GridSteps      []model.GridStep `yaml:"grid_steps"`
	WideCellMeters float64          `yaml:"wide_cell_meters"`
	SearchDebounce time.Duration    `yaml:"search_debounce"`
}

// DefaultClusteringConfig はデフォルトの調整値
func DefaultClusteringConfig() ClusteringConfig {
	return ClusteringConfig{
		RegionEpsilon:  model.DefaultRegionEpsilon,
		GridSteps:      model.DefaultGridSteps,
		WideCellMeters: model.DefaultWideCellMeters,
		SearchDebounce: 300 * time.Millisecond,
	}
}

// Load は.envファイルと環境変数から設定を読み込む
// .envファイルがなくてもエラーにはしない
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		SpotSource:         getEnv("SPOT_SOURCE", SpotSourceSupabase),
		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseAnonKey:    os.Getenv("SUPABASE_ANON_KEY"),
		SupabaseDBPassword: os.Getenv("SUPABASE_DB_PASSWORD"),
		Clustering:         DefaultClusteringConfig(),
	}

	if path := os.Getenv("CLUSTER_CONFIG_PATH"); path != "" {
		clustering, err := LoadClusteringFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Clustering = clustering
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証失敗: %w", err)
	}
	return cfg, nil
}

// LoadClusteringFile はYAMLファイルからクラスタリングの調整値を読み込む
// ファイルにない項目はデフォルト値のまま
func LoadClusteringFile(path string) (ClusteringConfig, error) {
	clustering := DefaultClusteringConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return clustering, fmt.Errorf("クラスタリング設定ファイルの読み込み失敗: %w", err)
	}
	if err := yaml.Unmarshal(data, &clustering); err != nil {
		return clustering, fmt.Errorf("クラスタリング設定ファイルのYAMLパース失敗: %w", err)
	}
	if err := clustering.Validate(); err != nil {
		return clustering, err
	}
	return clustering, nil
}

// Validate は設定値のバリデーション
func (c *Config) Validate() error {
	switch c.SpotSource {
	case SpotSourceSupabase:
		if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
			return fmt.Errorf("SUPABASE_URLとSUPABASE_ANON_KEYは必須です")
		}
	case SpotSourcePostgres:
		if c.SupabaseURL == "" || c.SupabaseDBPassword == "" {
			return fmt.Errorf("SUPABASE_URLとSUPABASE_DB_PASSWORDは必須です")
		}
	default:
		return fmt.Errorf("SPOT_SOURCEはsupabaseまたはpostgresを指定してください: %s", c.SpotSource)
	}
	return c.Clustering.Validate()
}

// Validate はクラスタリング調整値のバリデーション
func (c ClusteringConfig) Validate() error {
	if c.RegionEpsilon <= 0 {
		return fmt.Errorf("region_epsilonは正の値である必要があります")
	}
	if c.WideCellMeters <= 0 {
		return fmt.Errorf("wide_cell_metersは正の値である必要があります")
	}
	if c.SearchDebounce < 0 {
		return fmt.Errorf("search_debounceは0以上である必要があります")
	}
	for i, step := range c.GridSteps {
		if step.CellMeters <= 0 {
			return fmt.Errorf("grid_steps[%d]: cell_metersは正の値である必要があります", i)
		}
		if i > 0 && step.MaxSpanLat <= c.GridSteps[i-1].MaxSpanLat {
			return fmt.Errorf("grid_steps[%d]: max_span_latは昇順である必要があります", i)
		}
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
