package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/paulmach/orb"
	"github.com/ttpr0/go-isometrics/graph"
	"github.com/ttpr0/go-isometrics/parser"
	. "github.com/ttpr0/go-isometrics/util"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// Aborts the pipeline of a single city.
var ErrFatalConfig = errors.New("fatal configuration error")

//**********************************************************
// config
//**********************************************************

// Reads the config file on top of the defaults and validates it.
func ReadConfig(file string) (Config, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(file)
	if err != nil {
		return config, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

type Config struct {
	DataPath      string       `yaml:"data-path" validate:"required"`
	ResultsPath   string       `yaml:"results-path" validate:"required"`
	PointsPerSqkm float64      `yaml:"points-per-sqkm" validate:"gt=0"`
	TravelTimes   []float64    `yaml:"travel-times" validate:"required,min=1,dive,gt=0"`
	TimeWindows   []TimeWindow `yaml:"time-windows" validate:"required,min=1,dive"`
	Modes         []graph.Mode `yaml:"modes" validate:"required,min=1"`

	Source         SourceType    `yaml:"source" validate:"oneof=1 2"`
	OverpassURL    string        `yaml:"overpass-url" validate:"omitempty,url"`
	RequestTimeout time.Duration `yaml:"request-timeout"`

	QueryTimeout       time.Duration `yaml:"query-timeout"`
	Workers            int           `yaml:"workers" validate:"gte=0"`
	MaxConnectDistance float64       `yaml:"max-connect-distance" validate:"gte=0"`

	Exclusions                []string `yaml:"exclusions"`
	FilterExclusionsInMetrics bool     `yaml:"filter-exclusions-in-metrics"`
	RequireBoundary           bool     `yaml:"require-boundary"`
	// seed of the sample point generator, random if 0
	Seed int64 `yaml:"seed"`

	Cities Dict[string, CityConfig] `yaml:"cities" validate:"required,min=1,dive"`
}

type TimeWindow struct {
	// seconds of day
	Start int `yaml:"start" json:"start" validate:"gte=0"`
	End   int `yaml:"end" json:"end" validate:"gtefield=Start"`
}

type CityConfig struct {
	Query       string  `yaml:"query"`
	Area        float64 `yaml:"area" validate:"gt=0"`
	Inhabitants int     `yaml:"inhabitants" validate:"gte=0"`
	// west, south, east, north
	BoundingBox          [4]float64 `yaml:"bounding-box"`
	TransportAssociation string     `yaml:"transport-association"`
}

func (self CityConfig) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{self.BoundingBox[0], self.BoundingBox[1]},
		Max: orb.Point{self.BoundingBox[2], self.BoundingBox[3]},
	}
}

func (self CityConfig) Region(name string) parser.Region {
	return parser.Region{
		Name:                 name,
		Query:                self.Query,
		BoundingBox:          self.Bound(),
		TransportAssociation: self.TransportAssociation,
	}
}

func DefaultConfig() Config {
	return Config{
		DataPath:           "./data",
		ResultsPath:        "./results",
		PointsPerSqkm:      100,
		TravelTimes:        []float64{15},
		TimeWindows:        []TimeWindow{{Start: 7 * 60 * 60, End: 8 * 60 * 60}},
		Modes:              []graph.Mode{graph.WALK, graph.BUS, graph.TRAM, graph.SUBWAY, graph.LIGHT_RAIL},
		Source:             OVERPASS,
		OverpassURL:        parser.DEFAULT_OVERPASS_URL,
		RequestTimeout:     180 * time.Second,
		QueryTimeout:       30 * time.Second,
		MaxConnectDistance: graph.DEFAULT_MAX_CONNECT_DISTANCE,
		Exclusions: []string{"cemetery", "farmland", "farmyard", "forest", "garden", "park",
			"recreation_ground", "water", "wood"},
		RequireBoundary: true,
		Cities:          NewDict[string, CityConfig](0),
	}
}

func (self Config) Validate() error {
	validate := validator.New()
	validate.RegisterStructValidation(_ValidateCity, CityConfig{})
	if err := validate.Struct(self); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for _, mode := range self.Modes {
		if mode == graph.ACCESS {
			return fmt.Errorf("invalid config: mode %s can not be acquired", mode)
		}
	}
	return nil
}

func _ValidateCity(sl validator.StructLevel) {
	city := sl.Current().Interface().(CityConfig)
	bbox := city.BoundingBox
	if bbox[0] >= bbox[2] || bbox[1] >= bbox[3] {
		sl.ReportError(city.BoundingBox, "BoundingBox", "BoundingBox", "bbox", "")
	}
	if bbox[0] < -180 || bbox[2] > 180 || bbox[1] < -90 || bbox[3] > 90 {
		sl.ReportError(city.BoundingBox, "BoundingBox", "BoundingBox", "bbox", "")
	}
}

// Returns the configured cities restricted to the given names, sorted by name.
func (self Config) SelectCities(names []string) (List[string], error) {
	selected := NewList[string](len(self.Cities))
	if len(names) == 0 {
		for name := range self.Cities {
			selected.Add(name)
		}
	} else {
		for _, name := range names {
			if !self.Cities.ContainsKey(name) {
				return nil, fmt.Errorf("unknown city %s", name)
			}
			selected.Add(name)
		}
	}
	slices.Sort(selected)
	return selected, nil
}

//**********************************************************
// enums
//**********************************************************

type SourceType byte

const (
	OVERPASS SourceType = 1
	PBF      SourceType = 2
)

func (self SourceType) String() string {
	switch self {
	case OVERPASS:
		return "overpass"
	case PBF:
		return "pbf"
	}
	return ""
}

func SourceTypeFromString(s string) (SourceType, error) {
	switch s {
	case "overpass":
		return OVERPASS, nil
	case "pbf":
		return PBF, nil
	default:
		return 0, errors.New("unknown source type: " + s)
	}
}

func (self SourceType) MarshalJSON() ([]byte, error) {
	return json.Marshal(self.String())
}
func (self *SourceType) UnmarshalJSON(data []byte) error {
	var typ string
	err := json.Unmarshal(data, &typ)
	if err != nil {
		return err
	}
	*self, err = SourceTypeFromString(typ)
	return err
}
func (self SourceType) MarshalYAML() (any, error) {
	return self.String(), nil
}
func (self *SourceType) UnmarshalYAML(value *yaml.Node) error {
	typ, err := SourceTypeFromString(value.Value)
	if err != nil {
		return err
	}
	*self = typ
	return nil
}
