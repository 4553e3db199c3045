package sqliteengine

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // driver import
	"modernc.org/sqlite/vfs"

	"github.com/AntonStoeckl/provider-directory-go/directory"
	"github.com/AntonStoeckl/provider-directory-go/internal/adapters"
)

const driverName = "sqlite"

// database is an opened, read-only snapshot with its vfs registration.
type database struct {
	db      *sql.DB
	vfs     *vfs.FS
	adapter adapters.DBAdapter
}

// openDatabase registers fsys as a sqlite vfs and opens fileName from it read-only.
// A file that sqlite cannot read as a database is reported as directory.ErrSnapshotCorrupt.
func openDatabase(ctx context.Context, fsys fs.FS, fileName string, kind adapters.Kind) (*database, error) {
	vfsName, vfsFS, err := vfs.New(fsys)
	if err != nil {
		return nil, err
	}

	dsn := "file:" + fileName + "?vfs=" + vfsName + "&mode=ro&immutable=1"

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		_ = vfsFS.Close()
		return nil, err
	}

	d := &database{db: db, vfs: vfsFS}

	switch kind {
	case adapters.KindSQLX:
		d.adapter = adapters.NewSQLXAdapter(sqlx.NewDb(db, driverName))
	default:
		d.adapter = adapters.NewSQLAdapter(db)
	}

	if err = d.verify(ctx); err != nil {
		_ = d.close()
		return nil, errors.Join(directory.ErrSnapshotCorrupt, err)
	}

	return d, nil
}

// verify forces sqlite to read and parse the schema.
func (d *database) verify(ctx context.Context) error {
	var tables int

	return d.db.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master WHERE type = 'table'").Scan(&tables)
}

func (d *database) close() error {
	return errors.Join(d.db.Close(), d.vfs.Close())
}
