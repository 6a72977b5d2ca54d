package plugins

import (
	"github.com/dlps/feed/pkg/api"
	"github.com/dlps/feed/pkg/registry"
)

// MDP is the University of Michigan namespace; most Google-digitized
// material ingests under it.
var MDP = &api.Namespace{
	Identifier:  "mdp",
	Description: "University of Michigan",
	Config: map[string]interface{}{
		"artist": "University of Michigan",
	},
	PackagetypeOverrides: map[string]map[string]interface{}{
		"google": {
			"artist": "Google",
		},
	},
}

// YaleNS ingests Yale-digitized volumes and tightens the JPEG2000
// validation window the package type allows.
var YaleNS = &api.Namespace{
	Identifier:  "yale",
	Description: "Yale University",
	Config: map[string]interface{}{
		"artist": "Yale University",
	},
	Validation: map[string]map[string]interface{}{
		"JPEG2000": {
			"decomposition_levels_min": 3,
			"decomposition_levels_max": 8,
		},
	},
}

// MPub is Michigan Publishing; born-digital EPUB material.
var MPub = &api.Namespace{
	Identifier:  "mpub",
	Description: "Michigan Publishing",
	Config: map[string]interface{}{
		"artist": "Michigan Publishing",
	},
	PackagetypeOverrides: map[string]map[string]interface{}{
		"epub": {
			"handle_prefix": "2027.42",
		},
	},
}

func init() {
	for _, ns := range []*api.Namespace{MDP, YaleNS, MPub} {
		registry.RegisterNamespace(ns)
	}
}
