package schema

import (
	"os"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	arborerr "github.com/roach88/arbor/pkg/errors"
)

// Load compiles the CUE package in dir.
func Load(dir string) (*Registry, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, arborerr.Wrap(err, arborerr.CodeSchemaLoadFailure, "schema directory", arborerr.Field("dir", dir))
	}
	if !info.IsDir() {
		return nil, arborerr.New(arborerr.CodeSchemaLoadFailure, "not a directory", arborerr.Field("dir", dir))
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, arborerr.New(arborerr.CodeSchemaLoadFailure, "no CUE instances loaded", arborerr.Field("dir", dir))
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, arborerr.Wrap(inst.Err, arborerr.CodeSchemaLoadFailure, "loading CUE files", arborerr.Field("dir", dir))
	}

	ctx := cuecontext.New()
	value := ctx.BuildInstance(inst)

	reg, err := Compile(value)
	if err != nil {
		return nil, arborerr.Wrap(err, arborerr.CodeSchemaCompileInvalid, "compiling entities", arborerr.Field("dir", dir))
	}
	return reg, nil
}
