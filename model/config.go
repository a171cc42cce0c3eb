package model

type DBType string

const (
	DBTypeDuckDB DBType = "duckdb"
)

type DBConfig struct {
	Type DBType
	DSN  string
}

// ModelParams 是档位展示参数, 不是拟合结果
type ModelParams struct {
	BandWidth float64 `yaml:"band_width" validate:"gt=0"`
	NumBands  int     `yaml:"num_bands"  validate:"gte=1"`
	IDecrease float64 `yaml:"i_decrease"`
}

func DefaultModelParams() ModelParams {
	return ModelParams{
		BandWidth: 0.3,
		NumBands:  9,
		IDecrease: 1.5,
	}
}
