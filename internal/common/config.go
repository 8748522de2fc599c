package common

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Templates   TemplatesConfig   `mapstructure:"templates"`
	OCR         OCRConfig         `mapstructure:"ocr"`
	Extract     ExtractConfig     `mapstructure:"extract"`
	Match       MatchConfig       `mapstructure:"match"`
	Thresholds  ThresholdsConfig  `mapstructure:"thresholds"`
	Genuineness GenuinenessConfig `mapstructure:"genuineness"`
	Workers     int               `mapstructure:"workers"` // 0 = runtime.NumCPU()
	Log         LogConfig         `mapstructure:"log"`
}

// TemplatesConfig locates the reference template library.
type TemplatesConfig struct {
	Dir      string `mapstructure:"dir"`
	Manifest string `mapstructure:"manifest"` // relative to Dir
	Watch    bool   `mapstructure:"watch"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine      string   `mapstructure:"engine"` // "cli" | "gosseract"
	Tesseract   string   `mapstructure:"tesseract"`
	Pdftotext   string   `mapstructure:"pdftotext"`
	Pdftoppm    string   `mapstructure:"pdftoppm"`
	TessdataDir string   `mapstructure:"tessdata_dir"`
	PSMModes    []int    `mapstructure:"psm_modes"` // empty = built-in sweep
	Languages   []string `mapstructure:"languages"` // empty = built-in sweep
	OEM         int      `mapstructure:"oem"`
	Preprocess  bool     `mapstructure:"preprocess"`
}

// ExtractConfig tunes the text extraction strategies.
type ExtractConfig struct {
	MinPageText int `mapstructure:"min_page_text"`
	RenderDPI   int `mapstructure:"render_dpi"`
	PreviewDPI  int `mapstructure:"preview_dpi"`
	MaxPages    int `mapstructure:"max_pages"` // 0 = no limit
}

// MatchConfig tunes template correlation.
type MatchConfig struct {
	MaxDimension int `mapstructure:"max_dimension"` // 0 = match at full resolution
}

// ThresholdsConfig holds the gate thresholds.
type ThresholdsConfig struct {
	MinMatchConfidence float64 `mapstructure:"min_match_confidence"`
	MinGenuineness     float64 `mapstructure:"min_genuineness"`
	Verification       float64 `mapstructure:"verification"`
}

// GenuinenessConfig holds the indicator scoring magnitudes.
type GenuinenessConfig struct {
	Base         float64  `mapstructure:"base"`
	Penalty      float64  `mapstructure:"penalty"`
	KeywordBonus float64  `mapstructure:"keyword_bonus"`
	BonusCap     float64  `mapstructure:"bonus_cap"`
	Indicators   []string `mapstructure:"indicators"` // empty = built-in list
	Keywords     []string `mapstructure:"keywords"`   // empty = built-in list
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" | "json"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("templates.dir", "./templates")
	v.SetDefault("templates.manifest", "templates.yaml")
	v.SetDefault("templates.watch", false)

	v.SetDefault("ocr.engine", "cli")
	v.SetDefault("ocr.tesseract", "tesseract")
	v.SetDefault("ocr.pdftotext", "pdftotext")
	v.SetDefault("ocr.pdftoppm", "pdftoppm")
	v.SetDefault("ocr.tessdata_dir", "")
	v.SetDefault("ocr.psm_modes", []int{})
	v.SetDefault("ocr.languages", []string{})
	v.SetDefault("ocr.oem", 3)
	v.SetDefault("ocr.preprocess", true)

	v.SetDefault("extract.min_page_text", 50)
	v.SetDefault("extract.render_dpi", 400)
	v.SetDefault("extract.preview_dpi", 150)
	v.SetDefault("extract.max_pages", 0)

	v.SetDefault("match.max_dimension", 1024)

	v.SetDefault("thresholds.min_match_confidence", 0.4)
	v.SetDefault("thresholds.min_genuineness", 0.6)
	v.SetDefault("thresholds.verification", 0.5)

	v.SetDefault("genuineness.base", 0.5)
	v.SetDefault("genuineness.penalty", 0.2)
	v.SetDefault("genuineness.keyword_bonus", 0.05)
	v.SetDefault("genuineness.bonus_cap", 0.3)
	v.SetDefault("genuineness.indicators", []string{})
	v.SetDefault("genuineness.keywords", []string{})

	v.SetDefault("workers", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// LoadConfig reads defaults, an optional YAML file and DOCVERIFY_* environment
// variables, in increasing order of precedence.
func LoadConfig(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DOCVERIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("docverify")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.docverify")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, NewAppError(CodeConfig, "read config file", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, NewAppError(CodeConfig, "decode config", err)
	}
	return &cfg, nil
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("templates.dir", c.Templates.Dir, Required).
		Field("ocr.engine", c.OCR.Engine, OneOf("cli", "gosseract")).
		Field("extract.min_page_text", c.Extract.MinPageText, NonNegative).
		Field("extract.render_dpi", c.Extract.RenderDPI, Positive).
		Field("extract.preview_dpi", c.Extract.PreviewDPI, Positive).
		Field("extract.max_pages", c.Extract.MaxPages, NonNegative).
		Field("match.max_dimension", c.Match.MaxDimension, NonNegative).
		Field("thresholds.min_match_confidence", c.Thresholds.MinMatchConfidence, UnitInterval).
		Field("thresholds.min_genuineness", c.Thresholds.MinGenuineness, UnitInterval).
		Field("thresholds.verification", c.Thresholds.Verification, UnitInterval).
		Field("genuineness.base", c.Genuineness.Base, UnitInterval).
		Field("genuineness.penalty", c.Genuineness.Penalty, UnitInterval).
		Field("genuineness.keyword_bonus", c.Genuineness.KeywordBonus, UnitInterval).
		Field("genuineness.bonus_cap", c.Genuineness.BonusCap, UnitInterval).
		Field("workers", c.Workers, NonNegative).
		Field("log.format", c.Log.Format, OneOf("text", "json"))
	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf("templates=%s ocr=%s workers=%d thresholds=%+v", c.Templates.Dir, c.OCR.Engine, c.Workers, c.Thresholds)
}
