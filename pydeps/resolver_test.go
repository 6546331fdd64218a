package pydeps

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		expected []string
	}{
		{name: "StdlibOnly", code: "import os", expected: []string{}},
		{name: "ThirdParty", code: "import requests", expected: []string{"requests"}},
		{name: "FromStdlib", code: "from collections import namedtuple", expected: []string{}},
		{name: "MixedImports", code: "import sys\nimport numpy as np", expected: []string{"numpy"}},
		{name: "UnknownPackage", code: "import unknownpackage", expected: []string{"unknownpackage"}},
		{name: "DottedThirdParty", code: "from scipy.optimize import minimize", expected: []string{"scipy"}},
		{name: "DuplicateImports", code: "import requests\nimport requests\nfrom requests import get", expected: []string{"requests"}},
		{name: "MultipleSorted", code: "import zmq\nimport attrs\nimport json", expected: []string{"attrs", "zmq"}},
		{name: "InternalModule", code: "import _socket", expected: []string{}},
		{name: "RelativeImport", code: "from . import helpers", expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, err := Parse(tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, deps)
		})
	}
}

func TestParseIsIdempotent(t *testing.T) {
	code := "import numpy\nimport pandas\nimport math"

	first, err := Parse(code)
	require.NoError(t, err)
	second, err := Parse(code)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"numpy", "pandas"}, first)
}

func TestParseSurfacesSyntaxErrors(t *testing.T) {
	_, err := Parse("import (")
	assert.Error(t, err)
}
