package inventory

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/netfleet-ops/netfleet/pkg/util"
)

// CloudVision REST paths, relative to https://<server>/web
const (
	cvpLoginPath          = "/login/authenticate.do"
	cvpInventoryPath      = "/inventory/devices"
	cvpLabelsPath         = "/label/getLabels.do"
	cvpAppliedDevicesPath = "/label/getAppliedDevices.do"
)

// CVPProvider loads the device inventory from an Arista CloudVision
// server. CloudVision ships with a self-signed certificate, so TLS
// verification is skipped unless VerifyTLS is set.
//
// GroupTypes names CloudVision label types (for example "ROLE"); every
// label of those types that is applied to a device becomes one of the
// host's groups.
type CVPProvider struct {
	Server     string
	Username   string
	Password   string
	VerifyTLS  bool
	GroupTypes []string

	client *http.Client
}

// NewCVPProviderFromEnv builds a provider from CVP_SERVER, CVP_USER and
// CVP_PASSWORD. CVP_GROUP_TAGS optionally lists label types, comma
// separated, to group hosts by.
func NewCVPProviderFromEnv() (*CVPProvider, error) {
	p := &CVPProvider{
		Server:   os.Getenv("CVP_SERVER"),
		Username: os.Getenv("CVP_USER"),
		Password: os.Getenv("CVP_PASSWORD"),
	}
	for _, t := range strings.Split(os.Getenv("CVP_GROUP_TAGS"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			p.GroupTypes = append(p.GroupTypes, t)
		}
	}
	v := &util.ValidationBuilder{}
	v.Add(p.Server != "", "CVP_SERVER is not set")
	v.Add(p.Username != "", "CVP_USER is not set")
	v.Add(p.Password != "", "CVP_PASSWORD is not set")
	if err := v.Build(); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrMissingCredential, err)
	}
	return p, nil
}

type cvpDevice struct {
	FQDN      string `json:"fqdn"`
	IPAddress string `json:"ipAddress"`
}

type cvpLabel struct {
	Key         string `json:"key"`
	DeviceCount int    `json:"netElementCount"`
}

type cvpLabelsResponse struct {
	Labels []cvpLabel `json:"labels"`
}

type cvpAppliedDevicesResponse struct {
	Data []struct {
		HostName string `json:"hostName"`
	} `json:"data"`
}

type cvpLoginResponse struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

// Hosts implements Provider
func (p *CVPProvider) Hosts(ctx context.Context) ([]*Host, error) {
	if err := p.login(ctx); err != nil {
		return nil, err
	}

	var devices []cvpDevice
	if err := p.do(ctx, http.MethodGet, cvpInventoryPath, nil, &devices); err != nil {
		return nil, fmt.Errorf("CVP inventory: %w", err)
	}

	groups, err := p.deviceGroups(ctx)
	if err != nil {
		return nil, err
	}

	hosts := make([]*Host, 0, len(devices))
	for _, d := range devices {
		if d.FQDN == "" {
			continue
		}
		hosts = append(hosts, &Host{
			Name:     d.FQDN,
			Address:  d.IPAddress,
			Platform: PlatformEOS,
			Groups:   groups[d.FQDN],
		})
	}
	util.Debugf("CVP %s returned %d devices", p.Server, len(hosts))
	return hosts, nil
}

// deviceGroups maps device host names to the keys of the labels applied to
// them, for every label type in GroupTypes. Labels on no device are skipped.
func (p *CVPProvider) deviceGroups(ctx context.Context) (map[string][]string, error) {
	groups := make(map[string][]string)
	for _, typ := range p.GroupTypes {
		q := url.Values{"module": {"cvp"}, "type": {typ}}
		var labels cvpLabelsResponse
		if err := p.do(ctx, http.MethodGet, cvpLabelsPath+"?"+q.Encode(), nil, &labels); err != nil {
			return nil, fmt.Errorf("CVP labels of type %s: %w", typ, err)
		}
		for _, l := range labels.Labels {
			if l.DeviceCount == 0 {
				continue
			}
			q := url.Values{"labelId": {l.Key}, "startIndex": {"0"}, "endIndex": {"0"}}
			var applied cvpAppliedDevicesResponse
			if err := p.do(ctx, http.MethodGet, cvpAppliedDevicesPath+"?"+q.Encode(), nil, &applied); err != nil {
				return nil, fmt.Errorf("CVP devices with label %s: %w", l.Key, err)
			}
			for _, d := range applied.Data {
				groups[d.HostName] = append(groups[d.HostName], l.Key)
			}
		}
	}
	return groups, nil
}

func (p *CVPProvider) login(ctx context.Context) error {
	if p.client == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return err
		}
		p.client = &http.Client{
			Jar:     jar,
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: !p.VerifyTLS},
			},
		}
	}

	body := map[string]string{"userId": p.Username, "password": p.Password}
	var resp cvpLoginResponse
	if err := p.do(ctx, http.MethodPost, cvpLoginPath, body, &resp); err != nil {
		return fmt.Errorf("CVP login to %s: %w", p.Server, err)
	}
	if resp.ErrorCode != "" {
		return fmt.Errorf("CVP login to %s: %s; check credentials or remote-access reachability",
			p.Server, resp.ErrorMessage)
	}
	return nil
}

func (p *CVPProvider) baseURL() string {
	server := strings.TrimSuffix(p.Server, "/")
	if !strings.HasPrefix(server, "http://") && !strings.HasPrefix(server, "https://") {
		server = "https://" + server
	}
	return server + "/web"
}

func (p *CVPProvider) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL()+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(msg)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
