// Package seed reads problem seed files.
//
// A seed file is YAML with a top-level "problems" list; every entry uses the
// same field names as the admin create-problem request:
//
//	problems:
//	  - source: AIME 2022 I Problem 1
//	    hyperlink: https://artofproblemsolving.com/wiki/...
//	    keyphrase: quadratic polynomials
//	    format: short-answer
//	    answer: "116"
//	    rating: 1250
//	    author: MAA
package seed

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mmiddlezong/problem-database/internal/app/service"
)

type File struct {
	Problems []service.CreateProblemRequest `yaml:"problems"`
}

func Parse(r io.Reader) ([]service.CreateProblemRequest, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("seed file is empty")
		}
		return nil, fmt.Errorf("decoding seed file: %w", err)
	}
	if len(f.Problems) == 0 {
		return nil, fmt.Errorf("seed file lists no problems")
	}
	return f.Problems, nil
}

func Load(path string) ([]service.CreateProblemRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}
