package sim

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat/distuv"
)

// DistKind names a parametric distribution family.
type DistKind string

const (
	KindConstant    DistKind = "constant"
	KindUniform     DistKind = "uniform"
	KindExponential DistKind = "exponential"
	KindNormal      DistKind = "normal"
	KindTriangular  DistKind = "triangular"
	KindLogNormal   DistKind = "lognormal"
	KindGamma       DistKind = "gamma"
	KindWeibull     DistKind = "weibull"
)

// distParams lists the required parameters of each kind. A kind missing from
// this map is unknown.
var distParams = map[DistKind][]string{
	KindConstant:    {"value"},
	KindUniform:     {"min", "max"},
	KindExponential: {"mean"},
	KindNormal:      {"mean", "stddev"},
	KindTriangular:  {"min", "mode", "max"},
	KindLogNormal:   {"mu", "sigma"},
	KindGamma:       {"shape", "scale"},
	KindWeibull:     {"shape", "scale"},
}

// DistSpec parameterizes a distribution as it appears in model YAML.
type DistSpec struct {
	Kind   DistKind           `yaml:"kind" json:"kind"`
	Params map[string]float64 `yaml:"params,omitempty" json:"params,omitempty"`
}

// IsZero reports whether the spec was left empty in the configuration.
func (s DistSpec) IsZero() bool {
	return s.Kind == "" && len(s.Params) == 0
}

// Distribution is a compiled sampler. The set of implementations is closed:
// only the types in this file satisfy it.
type Distribution interface {
	// Sample draws one variate. All randomness comes from rng.
	Sample(rng *rand.Rand) float64
	// Mean returns the analytic mean.
	Mean() float64
	Kind() DistKind
	sealed()
}

// Constant always returns Value.
type Constant struct{ Value float64 }

// Uniform samples from [Min, Max).
type Uniform struct{ Min, Max float64 }

// Exponential samples by inverse CDF: -ln(1-U)·Mean.
type Exponential struct{ MeanValue float64 }

// Normal samples with the Box–Muller transform. StdDev 0 degenerates to Mu.
type Normal struct{ Mu, StdDev float64 }

// Triangular samples by the piecewise inverse CDF.
type Triangular struct{ Min, Mode, Max float64 }

// LogNormal samples exp(N(Mu, Sigma)).
type LogNormal struct{ Mu, Sigma float64 }

// Gamma is parameterized by shape k and scale θ (mean kθ).
type Gamma struct{ Shape, Scale float64 }

// Weibull is parameterized by shape k and scale λ.
type Weibull struct{ Shape, Scale float64 }

func (Constant) sealed()    {}
func (Uniform) sealed()     {}
func (Exponential) sealed() {}
func (Normal) sealed()      {}
func (Triangular) sealed()  {}
func (LogNormal) sealed()   {}
func (Gamma) sealed()       {}
func (Weibull) sealed()     {}

func (Constant) Kind() DistKind    { return KindConstant }
func (Uniform) Kind() DistKind     { return KindUniform }
func (Exponential) Kind() DistKind { return KindExponential }
func (Normal) Kind() DistKind      { return KindNormal }
func (Triangular) Kind() DistKind  { return KindTriangular }
func (LogNormal) Kind() DistKind   { return KindLogNormal }
func (Gamma) Kind() DistKind       { return KindGamma }
func (Weibull) Kind() DistKind     { return KindWeibull }

func (d Constant) Sample(_ *rand.Rand) float64 { return d.Value }
func (d Constant) Mean() float64               { return d.Value }

func (d Uniform) Sample(rng *rand.Rand) float64 {
	return d.Min + rng.Float64()*(d.Max-d.Min)
}
func (d Uniform) Mean() float64 { return (d.Min + d.Max) / 2 }

func (d Exponential) Sample(rng *rand.Rand) float64 {
	// Float64 is in [0, 1), so 1-U is in (0, 1] and the log is finite.
	return -math.Log(1-rng.Float64()) * d.MeanValue
}
func (d Exponential) Mean() float64 { return d.MeanValue }

func (d Normal) Sample(rng *rand.Rand) float64 {
	if d.StdDev == 0 {
		return d.Mu
	}
	u1 := 1 - rng.Float64()
	u2 := rng.Float64()
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	return d.Mu + d.StdDev*z
}
func (d Normal) Mean() float64 { return d.Mu }

func (d Triangular) Sample(rng *rand.Rand) float64 {
	span := d.Max - d.Min
	if span == 0 {
		return d.Min
	}
	u := rng.Float64()
	c := (d.Mode - d.Min) / span
	if u < c {
		return d.Min + math.Sqrt(u*span*(d.Mode-d.Min))
	}
	return d.Max - math.Sqrt((1-u)*span*(d.Max-d.Mode))
}
func (d Triangular) Mean() float64 { return (d.Min + d.Mode + d.Max) / 3 }

func (d LogNormal) Sample(rng *rand.Rand) float64 {
	return distuv.LogNormal{Mu: d.Mu, Sigma: d.Sigma, Src: rng}.Rand()
}
func (d LogNormal) Mean() float64 {
	return distuv.LogNormal{Mu: d.Mu, Sigma: d.Sigma}.Mean()
}

func (d Gamma) Sample(rng *rand.Rand) float64 {
	return distuv.Gamma{Alpha: d.Shape, Beta: 1 / d.Scale, Src: rng}.Rand()
}
func (d Gamma) Mean() float64 { return d.Shape * d.Scale }

func (d Weibull) Sample(rng *rand.Rand) float64 {
	return distuv.Weibull{K: d.Shape, Lambda: d.Scale, Src: rng}.Rand()
}
func (d Weibull) Mean() float64 {
	return distuv.Weibull{K: d.Shape, Lambda: d.Scale}.Mean()
}

// NewDistribution compiles a DistSpec. Unknown kinds, missing or unexpected
// parameters, and out-of-range values are configuration errors.
func NewDistribution(spec DistSpec) (Distribution, error) {
	required, ok := distParams[spec.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown distribution kind %q; valid: %s", spec.Kind, validKinds())
	}
	if err := checkParams(spec, required); err != nil {
		return nil, err
	}
	p := spec.Params

	switch spec.Kind {
	case KindConstant:
		return Constant{Value: p["value"]}, nil

	case KindUniform:
		if p["min"] > p["max"] {
			return nil, fmt.Errorf("uniform: min (%g) must be <= max (%g)", p["min"], p["max"])
		}
		return Uniform{Min: p["min"], Max: p["max"]}, nil

	case KindExponential:
		if p["mean"] <= 0 {
			return nil, fmt.Errorf("exponential: mean must be positive, got %g", p["mean"])
		}
		return Exponential{MeanValue: p["mean"]}, nil

	case KindNormal:
		if p["stddev"] < 0 {
			return nil, fmt.Errorf("normal: stddev must be non-negative, got %g", p["stddev"])
		}
		return Normal{Mu: p["mean"], StdDev: p["stddev"]}, nil

	case KindTriangular:
		if p["min"] > p["mode"] || p["mode"] > p["max"] {
			return nil, fmt.Errorf("triangular: need min <= mode <= max, got %g, %g, %g", p["min"], p["mode"], p["max"])
		}
		return Triangular{Min: p["min"], Mode: p["mode"], Max: p["max"]}, nil

	case KindLogNormal:
		if p["sigma"] < 0 {
			return nil, fmt.Errorf("lognormal: sigma must be non-negative, got %g", p["sigma"])
		}
		return LogNormal{Mu: p["mu"], Sigma: p["sigma"]}, nil

	case KindGamma:
		if p["shape"] <= 0 || p["scale"] <= 0 {
			return nil, fmt.Errorf("gamma: shape and scale must be positive, got %g, %g", p["shape"], p["scale"])
		}
		return Gamma{Shape: p["shape"], Scale: p["scale"]}, nil

	case KindWeibull:
		if p["shape"] <= 0 || p["scale"] <= 0 {
			return nil, fmt.Errorf("weibull: shape and scale must be positive, got %g, %g", p["shape"], p["scale"])
		}
		return Weibull{Shape: p["shape"], Scale: p["scale"]}, nil
	}
	panic(fmt.Sprintf("unhandled distribution kind %q", spec.Kind))
}

// checkParams verifies every required key is present and finite, and that no
// unrecognized key (usually a typo) slipped in.
func checkParams(spec DistSpec, required []string) error {
	for _, k := range required {
		v, ok := spec.Params[k]
		if !ok {
			return fmt.Errorf("%s distribution requires parameter %q", spec.Kind, k)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s distribution parameter %q must be finite, got %v", spec.Kind, k, v)
		}
	}
	if len(spec.Params) == len(required) {
		return nil
	}
	for k := range spec.Params {
		known := false
		for _, r := range required {
			if k == r {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("%s distribution does not accept parameter %q", spec.Kind, k)
		}
	}
	return nil
}

func validKinds() string {
	names := make([]string, 0, len(distParams))
	for k := range distParams {
		names = append(names, string(k))
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
