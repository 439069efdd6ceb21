package campaign

import (
	"gonum.org/v1/gonum/stat/distuv"

	"sweepcore/pkg/domain"
)

func uniformDist(min, max float64) domain.Distribution {
	if max <= min {
		max = min + 1
	}
	return distuv.Uniform{Min: min, Max: max}
}

func normalDist(mu, sigma float64) domain.Distribution {
	if sigma <= 0 {
		sigma = 1
	}
	return distuv.Normal{Mu: mu, Sigma: sigma}
}

func logNormalDist(mu, sigma float64) domain.Distribution {
	if sigma <= 0 {
		sigma = 1
	}
	return distuv.LogNormal{Mu: mu, Sigma: sigma}
}
