package main

import (
	"encoding"

	"github.com/YuminosukeSato/sciforest/core/model"
	"github.com/YuminosukeSato/sciforest/pkg/config"
	"github.com/YuminosukeSato/sciforest/pkg/errors"
	"github.com/YuminosukeSato/sciforest/preprocessing"
)

// bundle is what train persists: the estimator and the scaler fitted before
// it, so predict can transform new samples the same way.
type bundle struct {
	Kind   string
	Base   string
	Scaler []byte
	Model  []byte
}

// openPersister returns the configured persister and a function releasing
// it.
func openPersister(p config.PersistConfig) (model.Persister, func() error, error) {
	switch p.Kind {
	case "filesystem":
		return model.NewFilesystem(p.Path, p.History), func() error { return nil }, nil
	case "badger":
		db, err := model.OpenBadger(model.BadgerConfig{Path: p.Path, SyncWrites: true, Key: p.Key})
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil
	default:
		return nil, nil, errors.NewValidationError("persist.kind", "must be filesystem or badger", p.Kind)
	}
}

func saveBundle(cfg *config.Config, learner model.Learner, scaler *preprocessing.StandardScaler) error {
	m, ok := learner.(encoding.BinaryMarshaler)
	if !ok {
		return errors.NewValueError("saveBundle", "estimator is not serializable")
	}
	b := bundle{Kind: cfg.Model.Kind, Base: cfg.Model.Base}
	var err error
	if b.Model, err = m.MarshalBinary(); err != nil {
		return err
	}
	if scaler != nil {
		if b.Scaler, err = scaler.MarshalBinary(); err != nil {
			return err
		}
	}
	blob, err := model.EncodeGob(b)
	if err != nil {
		return err
	}

	p, release, err := openPersister(cfg.Persist)
	if err != nil {
		return err
	}
	defer func() { _ = release() }()
	return p.Save(blob)
}

// loadBundle restores the estimator and, when one was saved, the scaler.
func loadBundle(cfg *config.Config) (model.Learner, *preprocessing.StandardScaler, error) {
	p, release, err := openPersister(cfg.Persist)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = release() }()

	blob, err := p.Load()
	if err != nil {
		return nil, nil, err
	}
	var b bundle
	if err := model.DecodeGob(blob, &b); err != nil {
		return nil, nil, errors.Wrap(err, "decode model bundle")
	}

	blank := config.Default()
	blank.Model.Kind = b.Kind
	blank.Model.Base = b.Base
	blank.Backend = cfg.Backend
	learner, err := buildLearner(blank)
	if err != nil {
		return nil, nil, err
	}
	u, ok := learner.(encoding.BinaryUnmarshaler)
	if !ok {
		return nil, nil, errors.NewValueError("loadBundle", "estimator is not serializable")
	}
	if err := u.UnmarshalBinary(b.Model); err != nil {
		return nil, nil, err
	}

	if b.Scaler == nil {
		return learner, nil, nil
	}
	scaler := preprocessing.NewStandardScaler(true)
	if err := scaler.UnmarshalBinary(b.Scaler); err != nil {
		return nil, nil, err
	}
	return learner, scaler, nil
}
