package deploy

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fundme/commoncon"
	"github.com/fundme/levelDB"
)

var ErrDeploymentNotFound = errors.New("deploy: no deployment")

// 部署记录
type Deployment struct {
	Name        string            `json:"name"`
	Address     common.Address    `json:"address"`
	Network     string            `json:"network"`
	TxId        string            `json:"tx_id"`
	BlockHeight int               `json:"block_height"`
	Args        map[string]string `json:"args"`
}

// 以合约名为 key 保存在 levelDB 中
type Deployments struct {
	db *levelDB.Store
}

func NewDeployments(db *levelDB.Store) *Deployments {
	return &Deployments{db: db}
}

func (d *Deployments) Save(dep Deployment) error {
	data, err := json.Marshal(dep)
	if err != nil {
		return err
	}
	return d.db.Put(commoncon.DeploymentKeyPrefix+dep.Name, data)
}

func (d *Deployments) Get(name string) (Deployment, error) {
	data, err := d.db.Get(commoncon.DeploymentKeyPrefix + name)
	if errors.Is(err, levelDB.ErrNotFound) {
		return Deployment{}, fmt.Errorf("%w: %s", ErrDeploymentNotFound, name)
	}
	if err != nil {
		return Deployment{}, err
	}
	var dep Deployment
	if err := json.Unmarshal(data, &dep); err != nil {
		return Deployment{}, err
	}
	return dep, nil
}

func (d *Deployments) All() ([]Deployment, error) {
	var deps []Deployment
	var decodeErr error
	err := d.db.Iterate(commoncon.DeploymentKeyPrefix, func(_ string, value []byte) bool {
		var dep Deployment
		if decodeErr = json.Unmarshal(value, &dep); decodeErr != nil {
			return false
		}
		deps = append(deps, dep)
		return true
	})
	if err != nil {
		return nil, err
	}
	return deps, decodeErr
}
