package idt

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/msitools/msiparser/cfb"
	"github.com/msitools/msiparser/internal/log"
	"github.com/msitools/msiparser/msi"
)

// Export writes every decodable table of p into dir as <Table>.idt, with
// binary payloads under <Table>/. At most jobs tables are written at once.
// Tables that fail are logged and reported; the returned error is only set
// for failures that stop the export as a whole.
func Export(ctx context.Context, p *msi.Package, dir string, jobs int) (*msi.Report, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "idt: creating output directory")
	}
	if jobs < 1 {
		jobs = 1
	}

	tables := p.Tables()
	errs := make([]error, len(tables))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, t := range tables {
		i, t := i, t
		if t.Err() != nil {
			errs[i] = t.Err()
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			errs[i] = exportTable(p, t, dir)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &msi.Report{}
	for i, t := range tables {
		report.Add(t.Name, errs[i])
		if errs[i] != nil {
			log.Warning("table not exported", map[string]interface{}{
				log.KeyTable: t.Name,
				log.KeyError: errs[i],
			})
		}
	}
	return report, nil
}

func exportTable(p *msi.Package, t *msi.Table, dir string) error {
	name := cfb.FileName(t.Name)
	f, err := os.Create(filepath.Join(dir, name+Ext))
	if err != nil {
		return err
	}
	if err = Write(f, t); err != nil {
		f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}

	for _, row := range t.Rows {
		for _, v := range row {
			if v.Kind != msi.Stream {
				continue
			}
			data, err := p.ReadStream(v.Str)
			if err != nil {
				// the cell flags a stream the container does not hold
				log.Warning("missing binary stream", map[string]interface{}{
					log.KeyTable:  t.Name,
					log.KeyStream: v.Str,
					log.KeyError:  err,
				})
				continue
			}
			sub := filepath.Join(dir, name)
			if err = os.MkdirAll(sub, 0o755); err != nil {
				return err
			}
			if err = os.WriteFile(filepath.Join(sub, cfb.FileName(BinaryFile(v))), data, 0o644); err != nil {
				return err
			}
		}
	}
	return nil
}
