package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phuslu/log"
	"github.com/posix4e/btc-mnav-rainbow/model"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "rainbow.yaml"

// DefaultExtendMonths 档位默认向后延伸 9 个月
const DefaultExtendMonths = 9

type Config struct {
	Database struct {
		Path string `yaml:"path" validate:"required"`
	} `yaml:"database"`

	// 原始输入文件, 为空的项在刷新时跳过导入
	Inputs struct {
		BtcCSV      string `yaml:"btc_csv"`
		CapitalCSV  string `yaml:"capital_csv"`
		FilingsJSON string `yaml:"filings_json"`
		Instruments string `yaml:"instruments_csv"`
	} `yaml:"inputs"`

	Output struct {
		Dir string `yaml:"dir" validate:"required"`
	} `yaml:"output"`

	Model model.ModelParams `yaml:"model"`

	Chart struct {
		ExtendMonths int               `yaml:"extend_months" validate:"gte=0"`
		Variant      model.MnavVariant `yaml:"variant"       validate:"oneof=naive advanced"`
		Resample     string            `yaml:"resample"      validate:"oneof=daily weekly"`
	} `yaml:"chart"`

	Custom struct {
		IncludeDebt bool     `yaml:"include_debt"`
		Instruments []string `yaml:"instruments" validate:"dive,required"`
	} `yaml:"custom"`

	Schedule struct {
		Cron string `yaml:"cron" validate:"required"`
	} `yaml:"schedule"`

	Log struct {
		Level string `yaml:"level" validate:"oneof=trace debug info warn error"`
	} `yaml:"log"`

	Workers int `yaml:"workers" validate:"gte=1"`
}

// Load 读取 YAML 配置, 文件不存在时只使用环境变量与默认值
func Load(path string) (*Config, error) {
	// 可以显式为 0 的键先填默认值, YAML 只覆盖出现的键
	cfg := &Config{Model: model.DefaultModelParams()}
	cfg.Chart.ExtendMonths = DefaultExtendMonths

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	// 环境变量覆盖
	if v := os.Getenv("RAINBOW_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("RAINBOW_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("RAINBOW_SCHEDULE"); v != "" {
		cfg.Schedule.Cron = v
	}
	if v := os.Getenv("RAINBOW_LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	if v := os.Getenv("RAINBOW_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse RAINBOW_WORKERS: %w", err)
		}
		cfg.Workers = n
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "rainbow.duckdb"
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "output"
	}
	if c.Chart.Variant == "" {
		c.Chart.Variant = model.VariantNaive
	}
	if c.Chart.Resample == "" {
		c.Chart.Resample = "daily"
	}
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = "0 0 6 * * *"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Workers == 0 {
		c.Workers = 2
	}
}

// Validate 校验配置, 错误信息包含字段名
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for _, name := range c.Custom.Instruments {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("invalid config: custom.instruments: empty instrument name")
		}
	}
	return nil
}

// Weekly 是否按周线拟合与出图
func (c *Config) Weekly() bool {
	return c.Chart.Resample == "weekly"
}

// Selection 自定义 MNAV 变体的负债项选择。
// 工具名称不限于已知的四种, 名义金额文件中出现的任何名称都可以选择。
func (c *Config) Selection() model.Selection {
	sel := model.Selection{IncludeDebt: c.Custom.IncludeDebt}
	for _, name := range c.Custom.Instruments {
		sel.Instruments = append(sel.Instruments, model.InstrumentKind(strings.ToUpper(strings.TrimSpace(name))))
	}
	return sel
}

func (c *Config) LogLevel() log.Level {
	return log.ParseLevel(c.Log.Level)
}
