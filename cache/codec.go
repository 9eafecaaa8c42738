package cache

import (
	"encoding/json"

	"github.com/paulmach/orb/geojson"
	"github.com/ttpr0/go-isometrics/graph"
)

//*******************************************
// codecs
//*******************************************

type JSONCodec[V any] struct{}

func (self JSONCodec[V]) Encode(value V) ([]byte, error) {
	return json.Marshal(value)
}
func (self JSONCodec[V]) Decode(data []byte) (V, error) {
	var value V
	err := json.Unmarshal(data, &value)
	return value, err
}
func (self JSONCodec[V]) Extension() string {
	return ".json"
}

type GraphCodec struct{}

func (self GraphCodec) Encode(value *graph.Graph) ([]byte, error) {
	return graph.EncodeGraph(value), nil
}
func (self GraphCodec) Decode(data []byte) (*graph.Graph, error) {
	return graph.DecodeGraph(data)
}
func (self GraphCodec) Extension() string {
	return ".graph"
}

type GeoJSONCodec struct{}

func (self GeoJSONCodec) Encode(value *geojson.FeatureCollection) ([]byte, error) {
	return value.MarshalJSON()
}
func (self GeoJSONCodec) Decode(data []byte) (*geojson.FeatureCollection, error) {
	return geojson.UnmarshalFeatureCollection(data)
}
func (self GeoJSONCodec) Extension() string {
	return ".geojson"
}
