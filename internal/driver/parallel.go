package driver

import (
	"context"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"libertyls/internal/diag"
	"libertyls/internal/source"
)

// ListConfigFiles returns every *.xml file below dir in lexical order.
// Hidden directories are skipped.
func ListConfigFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".xml") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// DiagnoseDir diagnoses every config file below dir.
func DiagnoseDir(ctx context.Context, dir string, opts Options, jobs int) (*source.FileSet, []Result, error) {
	files, err := ListConfigFiles(dir)
	if err != nil {
		return nil, nil, err
	}
	fileSet, results, err := DiagnoseFiles(ctx, files, opts, jobs)
	if fileSet != nil {
		fileSet.SetBaseDir(dir)
	}
	return fileSet, results, err
}

// DiagnoseFiles diagnoses files with at most jobs workers; jobs <= 0 means
// GOMAXPROCS. Results keep the order of files. A file that cannot be read
// reports the failure in its Result instead of failing the run.
func DiagnoseFiles(ctx context.Context, files []string, opts Options, jobs int) (*source.FileSet, []Result, error) {
	fileSet := source.NewFileSet()
	if len(files) == 0 {
		return fileSet, nil, nil
	}
	opts.registry()
	files = append([]string(nil), files...)

	// loading is sequential so FileIDs follow the file order
	loadPhase := opts.Timer.Begin("load")
	ids := make([]source.FileID, len(files))
	loadErrors := make(map[int]error)
	for i, path := range files {
		abs, err := filepath.Abs(path)
		if err == nil {
			files[i] = abs
			ids[i], err = fileSet.Load(abs)
		}
		if err != nil {
			loadErrors[i] = err
		}
	}
	opts.Timer.End(loadPhase, strconv.Itoa(len(files))+" files")

	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	results := make([]Result, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if loadErr, ok := loadErrors[i]; ok {
				results[i] = Result{Path: path, Bag: diag.NewBag(opts.MaxDiagnostics), Err: loadErr}
				return nil
			}
			// each index is written by one goroutine only
			results[i] = diagnoseLoaded(gctx, fileSet, path, ids[i], opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fileSet, results, err
	}
	return fileSet, results, nil
}
