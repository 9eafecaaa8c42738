package main

type ErrorResponse struct {
	Request string `json:"request"`
	Error   any    `json:"error"`
}

func NewErrorResponse(request string, error any) ErrorResponse {
	return ErrorResponse{
		Request: request,
		Error:   error,
	}
}

type IsochroneResponse struct {
	City       string                     `json:"city"`
	Location   [2]float64                 `json:"location"`
	Window     TimeWindow                 `json:"window"`
	Isochrones []IsochroneMetricsResponse `json:"isochrones"`
}

type IsochroneMetricsResponse struct {
	Range   float64 `json:"range"`
	Success bool    `json:"success"`
	Mean    float64 `json:"mean_spatial_distance"`
	Median  float64 `json:"median_spatial_distance"`
	Min     float64 `json:"min_spatial_distance"`
	Max     float64 `json:"max_spatial_distance"`
	Area    float64 `json:"area"`
	Nodes   int     `json:"nodes"`
	Error   string  `json:"error,omitempty"`
}

type CitiesResponse struct {
	Cities []CityResponse `json:"cities"`
}

type CityResponse struct {
	Name        string     `json:"name"`
	Area        float64    `json:"area"`
	Inhabitants int        `json:"inhabitants"`
	BoundingBox [4]float64 `json:"bounding_box"`
	// set once a city run wrote its metrics
	Metrics *CityMetrics `json:"metrics,omitempty"`
}
