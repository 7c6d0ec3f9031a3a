package gconf

import (
	"context"
	"reflect"

	"github.com/iov-one/harvest"
	"github.com/iov-one/harvest/errors"
	"github.com/iov-one/harvest/x"
)

// OwnedConfig must have an owner. A configuration update message must be
// invoked by the owner in order to be authorized to apply the change.
type OwnedConfig interface {
	Validater
	GetOwner() harvest.AccountID
}

type UpdateConfigurationHandler struct {
	pkg string
	// newConfig returns an empty configuration used to load the data.
	newConfig func() OwnedConfig
	auth      x.Authenticator
}

var _ harvest.Handler = UpdateConfigurationHandler{}

// NewUpdateConfigurationHandler returns a message handler that process
// configuration patch message.
//
// The message must carry a "Patch" field of the same type as the
// configuration. Zero value fields of the patch do not update the stored
// configuration. Only the current configuration owner is authorized.
func NewUpdateConfigurationHandler(
	pkg string,
	newConfig func() OwnedConfig,
	auth x.Authenticator,
) UpdateConfigurationHandler {
	return UpdateConfigurationHandler{
		pkg:       pkg,
		newConfig: newConfig,
		auth:      auth,
	}
}

func (h UpdateConfigurationHandler) Check(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.CheckResult, error) {
	if _, err := h.applyTx(ctx, db, tx); err != nil {
		return nil, err
	}
	return &harvest.CheckResult{}, nil
}

func (h UpdateConfigurationHandler) Deliver(ctx context.Context, info harvest.BlockInfo, db harvest.KVStore, tx harvest.Tx) (*harvest.DeliverResult, error) {
	conf, err := h.applyTx(ctx, db, tx)
	if err != nil {
		return nil, err
	}
	info.Logger().Info("configuration updated", "pkg", h.pkg, "owner", conf.GetOwner())
	return &harvest.DeliverResult{Outcome: "updated"}, nil
}

func (h UpdateConfigurationHandler) applyTx(ctx context.Context, db harvest.KVStore, tx harvest.Tx) (OwnedConfig, error) {
	conf := h.newConfig()
	if err := Load(db, h.pkg, conf); err != nil {
		return nil, errors.Wrap(err, "load current configuration")
	}
	if !h.auth.HasAccount(ctx, conf.GetOwner()) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "owner only")
	}

	payload, err := patchPayload(tx)
	if err != nil {
		return nil, errors.Wrap(err, "cannot get message payload")
	}
	if err := patch(conf, payload); err != nil {
		return nil, errors.Wrap(err, "cannot patch config with message payload")
	}
	if err := Save(db, h.pkg, conf); err != nil {
		return nil, errors.Wrap(err, "cannot save updated config")
	}
	return conf, nil
}

func patch(config OwnedConfig, payload interface{}) error {
	cval := reflect.ValueOf(config)
	pval := reflect.ValueOf(payload)
	if cval.Kind() != reflect.Ptr || pval.Kind() != reflect.Ptr || cval.Type() != pval.Type() {
		return errors.Wrapf(errors.ErrMsg, "patch %T does not match configuration %T", payload, config)
	}
	cval, pval = cval.Elem(), pval.Elem()
	for i := 0; i < cval.NumField(); i++ {
		got := pval.Field(i)
		// Zero values do not update the original configuration.
		if got.IsZero() {
			continue
		}
		cval.Field(i).Set(got)
	}
	return nil
}

// patchPayload expects the transaction to have a message with "Patch" field of
// the same type as the configuration. Content of this field is extracted and
// returned.
func patchPayload(tx harvest.Tx) (interface{}, error) {
	msg, err := tx.GetMsg()
	if err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	pval := reflect.ValueOf(msg)
	if pval.Kind() != reflect.Ptr || pval.Elem().Kind() != reflect.Struct {
		return nil, errors.Wrapf(errors.ErrInput, "invalid message container value: %T", msg)
	}
	field := pval.Elem().FieldByName("Patch")
	if !field.IsValid() || field.Kind() != reflect.Ptr || field.IsNil() {
		return nil, errors.Wrap(errors.ErrState, `"Patch" field is required`)
	}
	return field.Interface(), nil
}
