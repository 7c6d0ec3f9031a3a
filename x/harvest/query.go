package harvest

import (
	"github.com/iov-one/harvest"
)

// Info is the response of the "/info" query.
type Info struct {
	State         *State         `json:"state"`
	Configuration *Configuration `json:"configuration"`
}

// InfoQueryHandler returns the state together with the configuration.
type InfoQueryHandler struct{}

var _ harvest.QueryHandler = InfoQueryHandler{}

func (InfoQueryHandler) Query(info harvest.BlockInfo, db harvest.ReadOnlyKVStore, data []byte) (interface{}, error) {
	s, err := loadState(db)
	if err != nil {
		return nil, err
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}
	return &Info{State: s, Configuration: conf}, nil
}

// Env is the response of the "/env" query.
type Env struct {
	Time  harvest.UnixTime `json:"time"`
	Epoch uint64           `json:"epoch"`
}

// EnvQueryHandler returns the time and epoch the harvester operates at.
type EnvQueryHandler struct{}

var _ harvest.QueryHandler = EnvQueryHandler{}

func (EnvQueryHandler) Query(info harvest.BlockInfo, db harvest.ReadOnlyKVStore, data []byte) (interface{}, error) {
	return &Env{Time: info.UnixTime(), Epoch: info.Epoch()}, nil
}
