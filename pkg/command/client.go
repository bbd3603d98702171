/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package command

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/imroc/req"

	"ezemfi.io/go-probe/pkg/command/ifc"
	"ezemfi.io/go-probe/pkg/config"
	"ezemfi.io/go-probe/pkg/probe"
	"ezemfi.io/go-probe/pkg/srv/control"
)

type ApiClient struct {
	*config.Config
	ApiPrefix string
}

var _ ifc.ApiClient = &ApiClient{}

func NewApiClient(cfg *config.Config) *ApiClient {
	return &ApiClient{
		Config:    cfg,
		ApiPrefix: fmt.Sprintf("http://%s/api", cfg.ApiAddr()),
	}
}

func (c *ApiClient) regReadUrl(addr string) string {
	if addr == "" {
		return fmt.Sprintf("%s/reg/r", c.ApiPrefix)
	}
	return fmt.Sprintf("%s/reg/r/%s", c.ApiPrefix, addr)
}

func (c *ApiClient) regWriteUrl() string {
	return fmt.Sprintf("%s/reg/w", c.ApiPrefix)
}

// checkStatus turns a non 200 response into an error carrying the response body
func checkStatus(r *req.Resp) error {
	if r.Response().StatusCode == http.StatusOK {
		return nil
	}
	body, _ := r.ToString()
	if body == "" {
		return errors.New(r.Response().Status)
	}
	return fmt.Errorf("%s: %s", r.Response().Status, body)
}

// RegRead sends request to get the value of a register
func (c *ApiClient) RegRead(addr string) (string, error) {
	r, err := req.Get(c.regReadUrl(addr))
	if err != nil {
		return "", err
	}
	if err = checkStatus(r); err != nil {
		return "", err
	}
	reg := &control.RegHex{}
	if err = r.ToJSON(reg); err != nil {
		return "", err
	}
	return reg.Value, nil
}

// RegReadAll sends request to get values of all registers
func (c *ApiClient) RegReadAll() ([]*control.RegHex, error) {
	r, err := req.Get(c.regReadUrl(""))
	if err != nil {
		return nil, err
	}
	if err = checkStatus(r); err != nil {
		return nil, err
	}
	var regs []*control.RegHex
	if err = r.ToJSON(&regs); err != nil {
		return nil, err
	}
	return regs, nil
}

// RegWrite sends request to write the value to a register
func (c *ApiClient) RegWrite(addr, value string) error {
	reg := &control.RegHex{
		Addr:  addr,
		Value: value,
	}
	r, err := req.Post(c.regWriteUrl(), req.BodyJSON(reg))
	if err != nil {
		return err
	}
	return checkStatus(r)
}

func (c *ApiClient) ProbeAction(action string) error {
	r, err := req.Post(fmt.Sprintf("%s/probe/%s", c.ApiPrefix, action))
	if err != nil {
		return err
	}
	return checkStatus(r)
}

func (c *ApiClient) Status() (*probe.Snapshot, error) {
	r, err := req.Get(fmt.Sprintf("%s/status", c.ApiPrefix))
	if err != nil {
		return nil, err
	}
	if err = checkStatus(r); err != nil {
		return nil, err
	}
	snap := &probe.Snapshot{}
	if err = r.ToJSON(snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (c *ApiClient) SetInput(setup *control.InputSetup) error {
	r, err := req.Post(fmt.Sprintf("%s/input", c.ApiPrefix), req.BodyJSON(setup))
	if err != nil {
		return err
	}
	return checkStatus(r)
}

// BramLoad queues words for the lookup buffer starting at addr
func (c *ApiClient) BramLoad(addr uint16, words []uint32) error {
	r, err := req.Post(fmt.Sprintf("%s/bram", c.ApiPrefix), req.BodyJSON(&control.BramLoad{
		Addr:  addr,
		Words: words,
	}))
	if err != nil {
		return err
	}
	return checkStatus(r)
}

func (c *ApiClient) BramRead(addr uint16, count int) ([]uint32, error) {
	r, err := req.Get(fmt.Sprintf("%s/bram/%d", c.ApiPrefix, addr), req.QueryParam{
		"count": strconv.Itoa(count),
	})
	if err != nil {
		return nil, err
	}
	if err = checkStatus(r); err != nil {
		return nil, err
	}
	load := &control.BramLoad{}
	if err = r.ToJSON(load); err != nil {
		return nil, err
	}
	return load.Words, nil
}

func (c *ApiClient) Runs(limit int) ([]probe.RunRecord, error) {
	r, err := req.Get(fmt.Sprintf("%s/runs", c.ApiPrefix), req.QueryParam{
		"limit": strconv.Itoa(limit),
	})
	if err != nil {
		return nil, err
	}
	if err = checkStatus(r); err != nil {
		return nil, err
	}
	var runs []probe.RunRecord
	if err = r.ToJSON(&runs); err != nil {
		return nil, err
	}
	return runs, nil
}
