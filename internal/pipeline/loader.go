package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// Load error codes (E001-E099).
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeNoPipelines = "E007" // No pipeline definitions found
)

// LoadError represents an error that occurred while loading a directory.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadResult holds the pipelines defined in a directory.
type LoadResult struct {
	Pipelines map[string]*Definition
	Value     cue.Value
	FileCount int
}

// Names returns the pipeline names in sorted order.
func (r *LoadResult) Names() []string {
	names := make([]string, 0, len(r.Pipelines))
	for name := range r.Pipelines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pick returns the pipeline called name. An empty name selects the only
// pipeline when there is exactly one.
func (r *LoadResult) Pick(name string) (*Definition, error) {
	if name == "" {
		if len(r.Pipelines) != 1 {
			return nil, fmt.Errorf("%d pipelines defined (%v), choose one by name", len(r.Pipelines), r.Names())
		}
		return r.Pipelines[r.Names()[0]], nil
	}
	def, ok := r.Pipelines[name]
	if !ok {
		return nil, fmt.Errorf("pipeline %q not defined, have %v", name, r.Names())
	}
	return def, nil
}

// Load reads every pipeline under "pipeline:" in the CUE package in dir.
// Structural errors are returned as *CompileError; directory and CUE
// evaluation errors as *LoadError.
func Load(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("pipeline directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing pipeline directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("resolving %s: %v", dir, err)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: abs})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}
	if err := value.Validate(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("validating CUE value: %v", err)}
	}

	result := &LoadResult{
		Pipelines: make(map[string]*Definition),
		Value:     value,
		FileCount: len(cueFiles),
	}

	pipelinesVal := value.LookupPath(cue.ParsePath("pipeline"))
	if !pipelinesVal.Exists() {
		return nil, &LoadError{Code: ErrCodeNoPipelines, Message: fmt.Sprintf("no pipeline definitions in %s", dir)}
	}
	iter, err := pipelinesVal.Fields()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating pipelines: %v", err)}
	}
	for iter.Next() {
		def, err := Parse(iter.Value())
		if err != nil {
			return nil, err
		}
		result.Pipelines[def.Name] = def
	}
	if len(result.Pipelines) == 0 {
		return nil, &LoadError{Code: ErrCodeNoPipelines, Message: fmt.Sprintf("no pipeline definitions in %s", dir)}
	}
	return result, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// LoadAndCompile loads dir and compiles the pipeline called name (or the
// only one, when name is empty).
func LoadAndCompile(dir, name string) (*Pipeline, error) {
	res, err := Load(dir)
	if err != nil {
		return nil, err
	}
	def, err := res.Pick(name)
	if err != nil {
		return nil, err
	}
	return Compile(def)
}
