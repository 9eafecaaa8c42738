package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"time"

	. "github.com/ttpr0/go-isometrics/util"
	"golang.org/x/exp/slog"
)

// request bodies above this size are rejected
const MAX_BODY_SIZE = 1 << 20

type none struct{}

//**********************************************************
// results
//**********************************************************

type Result struct {
	result any
	status int
}

func OK[T any](value T) Result {
	return Result{result: value, status: http.StatusOK}
}

func BadRequest[T any](value T) Result {
	return Result{result: value, status: http.StatusBadRequest}
}

func NotFound[T any](value T) Result {
	return Result{result: value, status: http.StatusNotFound}
}

func InternalError[T any](value T) Result {
	return Result{result: value, status: http.StatusInternalServerError}
}

func ReadRequestBody[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var req T
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, MAX_BODY_SIZE))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	return req, nil
}

func WriteResponse[T any](w http.ResponseWriter, resp T, status int) {
	data, err := json.Marshal(resp)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(err.Error()))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func _Respond(w http.ResponseWriter, r *http.Request, res Result, start time.Time) {
	if res.status != http.StatusOK {
		slog.Warn("request failed", "method", r.Method, "path", r.URL.Path, "status", res.status, "elapsed", time.Since(start))
		WriteResponse(w, NewErrorResponse(r.URL.Path, res.result), res.status)
		return
	}
	slog.Info("request finished", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	WriteResponse(w, res.result, res.status)
}

//**********************************************************
// handler mapping
//**********************************************************

// Registers a json POST endpoint, the body is decoded into F.
func MapPost[F any](app *http.ServeMux, path string, handler func(F) Result) {
	app.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if r.Method != http.MethodPost {
			_Respond(w, r, Result{result: "method not allowed", status: http.StatusMethodNotAllowed}, start)
			return
		}
		body, err := ReadRequestBody[F](w, r)
		if err != nil {
			_Respond(w, r, BadRequest(err.Error()), start)
			return
		}
		_Respond(w, r, handler(body), start)
	})
}

// Registers a GET endpoint, query parameters are decoded into the json
// tagged scalar fields of F.
func MapGet[F any](app *http.ServeMux, path string, handler func(F) Result) {
	typ := reflect.TypeOf((*F)(nil)).Elem()
	fields := _QueryFields(typ)
	app.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		if r.Method != http.MethodGet {
			_Respond(w, r, Result{result: "method not allowed", status: http.StatusMethodNotAllowed}, start)
			return
		}
		value := reflect.New(typ).Elem()
		query := r.URL.Query()
		for _, field := range fields {
			raw := query.Get(field.B)
			if raw == "" {
				continue
			}
			if err := _SetField(value.Field(field.A), field.C, raw); err != nil {
				_Respond(w, r, BadRequest(fmt.Sprintf("invalid parameter %s: %v", field.B, err)), start)
				return
			}
		}
		_Respond(w, r, handler(value.Interface().(F)), start)
	})
}

func _QueryFields(typ reflect.Type) List[Triple[int, string, reflect.Kind]] {
	fields := NewList[Triple[int, string, reflect.Kind]](typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag := field.Tag.Get("json")
		if tag == "" {
			continue
		}
		switch field.Type.Kind() {
		case reflect.Bool:
			fields.Add(MakeTriple(i, tag, reflect.Bool))
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			fields.Add(MakeTriple(i, tag, reflect.Int))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			fields.Add(MakeTriple(i, tag, reflect.Uint))
		case reflect.Float32, reflect.Float64:
			fields.Add(MakeTriple(i, tag, reflect.Float64))
		case reflect.String:
			fields.Add(MakeTriple(i, tag, reflect.String))
		}
	}
	return fields
}

func _SetField(f reflect.Value, kind reflect.Kind, raw string) error {
	switch kind {
	case reflect.Bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		f.SetBool(v)
	case reflect.Int:
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return err
		}
		f.SetInt(v)
	case reflect.Uint:
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return err
		}
		f.SetUint(v)
	case reflect.Float64:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		f.SetFloat(v)
	case reflect.String:
		f.SetString(raw)
	}
	return nil
}
