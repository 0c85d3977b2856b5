/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package openstack

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
)

const (
	fakeToken   = "gAAAAABfake-token"
	fakeProject = "f7ac731cc11f40efbc03a9f9e1d1d21f"
	fakeRegion  = "RegionOne"
)

var (
	fakeTime       = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	fakeCinderTime = fakeTime.Format("2006-01-02T15:04:05.000000")
)

// store is an ordered collection of JSON resources keyed by ID
type store struct {
	ids   []string
	items map[string]map[string]any
}

func newStore() *store { return &store{items: map[string]map[string]any{}} }

func (s *store) put(id string, item map[string]any) {
	if _, ok := s.items[id]; !ok {
		s.ids = append(s.ids, id)
	}
	s.items[id] = item
}

func (s *store) remove(id string) bool {
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	s.ids = slices.DeleteFunc(s.ids, func(i string) bool { return i == id })
	return true
}

func (s *store) list() []map[string]any {
	out := make([]map[string]any, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.items[id])
	}
	return out
}

// neutronCollection names the JSON keys of a Neutron resource collection
type neutronCollection struct {
	singular string
	plural   string
}

var neutronCollections = map[string]neutronCollection{
	"networks":             {"network", "networks"},
	"subnets":              {"subnet", "subnets"},
	"routers":              {"router", "routers"},
	"ports":                {"port", "ports"},
	"floatingips":          {"floatingip", "floatingips"},
	"security-groups":      {"security_group", "security_groups"},
	"security-group-rules": {"security_group_rule", "security_group_rules"},
}

// fakeOpenStack serves the subset of Keystone, Nova, Neutron, Cinder,
// Glance, Swift and Designate the provider uses. Every resource becomes
// ready immediately.
type fakeOpenStack struct {
	mu  sync.Mutex
	seq int
	url string

	// withoutDNS leaves Designate out of the service catalog
	withoutDNS bool

	collections map[string]*store
	blobs       map[string][]byte

	// lastServer is the body of the last server create request
	lastServer map[string]any
	// requests records "METHOD path" of every call
	requests []string
}

func newFakeOpenStack() (*fakeOpenStack, *httptest.Server) {
	f := &fakeOpenStack{
		collections: map[string]*store{},
		blobs:       map[string][]byte{},
	}
	f.seedDefaults()

	r := mux.NewRouter()
	r.HandleFunc("/v3/auth/tokens", f.token).Methods(http.MethodPost, http.MethodGet)
	r.HandleFunc("/v3/regions", f.regions).Methods(http.MethodGet)
	r.HandleFunc("/v3/regions/{id}", f.region).Methods(http.MethodGet)

	nova := r.PathPrefix("/compute/v2.1").Subrouter()
	nova.HandleFunc("/servers", f.createServer).Methods(http.MethodPost)
	nova.HandleFunc("/servers/detail", f.listServers).Methods(http.MethodGet)
	nova.HandleFunc("/servers/{id}", f.server).Methods(http.MethodGet, http.MethodDelete)
	nova.HandleFunc("/servers/{id}/action", f.serverAction).Methods(http.MethodPost)
	nova.HandleFunc("/servers/{id}/metadata", f.serverMetadata).Methods(http.MethodPost)
	nova.HandleFunc("/servers/{id}/os-volume_attachments", f.attachVolume).Methods(http.MethodPost)
	nova.HandleFunc("/servers/{id}/os-volume_attachments/{volume}", f.detachVolume).Methods(http.MethodDelete)
	nova.HandleFunc("/flavors/detail", f.listFlavors).Methods(http.MethodGet)
	nova.HandleFunc("/flavors/{id}", f.flavor).Methods(http.MethodGet)
	nova.HandleFunc("/os-availability-zone", f.availabilityZones).Methods(http.MethodGet)
	nova.HandleFunc("/os-keypairs", f.keyPairs).Methods(http.MethodGet, http.MethodPost)
	nova.HandleFunc("/os-keypairs/{id}", f.keyPair).Methods(http.MethodGet, http.MethodDelete)

	neutron := r.PathPrefix("/network/v2.0").Subrouter()
	neutron.HandleFunc("/routers/{id}/add_router_interface", f.addRouterInterface).Methods(http.MethodPut)
	neutron.HandleFunc("/routers/{id}/remove_router_interface", f.removeRouterInterface).Methods(http.MethodPut)
	neutron.HandleFunc("/{collection}", f.neutronList).Methods(http.MethodGet)
	neutron.HandleFunc("/{collection}", f.neutronCreate).Methods(http.MethodPost)
	neutron.HandleFunc("/{collection}/{id}", f.neutronItem).Methods(http.MethodGet, http.MethodPut, http.MethodDelete)
	neutron.HandleFunc("/{collection}/{id}/tags", f.neutronTags).Methods(http.MethodPut)

	cinder := r.PathPrefix("/volume/v3/" + fakeProject).Subrouter()
	cinder.HandleFunc("/volumes", f.createVolume).Methods(http.MethodPost)
	cinder.HandleFunc("/volumes", f.listCinder("volumes")).Methods(http.MethodGet)
	cinder.HandleFunc("/volumes/detail", f.listCinder("volumes")).Methods(http.MethodGet)
	cinder.HandleFunc("/volumes/{id}", f.volume).Methods(http.MethodGet, http.MethodPut, http.MethodDelete)
	cinder.HandleFunc("/snapshots", f.createSnapshot).Methods(http.MethodPost)
	cinder.HandleFunc("/snapshots", f.listCinder("snapshots")).Methods(http.MethodGet)
	cinder.HandleFunc("/snapshots/detail", f.listCinder("snapshots")).Methods(http.MethodGet)
	cinder.HandleFunc("/snapshots/{id}", f.snapshot).Methods(http.MethodGet, http.MethodDelete)
	cinder.HandleFunc("/snapshots/{id}/metadata", f.snapshotMetadata).Methods(http.MethodPut, http.MethodPost)

	glance := r.PathPrefix("/image/v2").Subrouter()
	glance.HandleFunc("/images", f.listImages).Methods(http.MethodGet)
	glance.HandleFunc("/images/{id}", f.image).Methods(http.MethodGet, http.MethodPatch, http.MethodDelete)

	swift := r.PathPrefix("/swift/v1/AUTH_" + fakeProject).Subrouter()
	swift.HandleFunc("/", f.listContainers).Methods(http.MethodGet)
	swift.HandleFunc("/{container}", f.container).Methods(http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodGet)
	swift.HandleFunc("/{container}/{object:.+}", f.object).Methods(http.MethodHead, http.MethodPut, http.MethodGet, http.MethodDelete)

	designate := r.PathPrefix("/dns/v2").Subrouter()
	designate.HandleFunc("/zones", f.zones).Methods(http.MethodGet, http.MethodPost)
	designate.HandleFunc("/zones/{id}", f.zone).Methods(http.MethodGet, http.MethodDelete)
	designate.HandleFunc("/zones/{zone}/recordsets", f.recordSets).Methods(http.MethodGet, http.MethodPost)
	designate.HandleFunc("/zones/{zone}/recordsets/{id}", f.recordSet).Methods(http.MethodGet, http.MethodDelete)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, req.Method+" "+req.URL.Path)
		f.mu.Unlock()
		r.ServeHTTP(w, req)
	}))
	f.url = srv.URL
	return f, srv
}

// seedDefaults adds what a fresh devstack project has: two regions,
// flavors, one image and an external network
func (f *fakeOpenStack) seedDefaults() {
	f.collection("regions").put(fakeRegion, map[string]any{"id": fakeRegion, "description": ""})
	f.collection("regions").put("RegionTwo", map[string]any{"id": "RegionTwo", "description": ""})

	for _, fl := range []struct {
		id, name         string
		ram, vcpus, disk int
		ephemeral        int
	}{
		{"1", "m1.tiny", 512, 1, 1, 0},
		{"2", "m1.small", 2048, 1, 20, 0},
		{"3", "m1.medium", 4096, 2, 40, 10},
	} {
		f.collection("flavors").put(fl.id, map[string]any{
			"id": fl.id, "name": fl.name, "ram": fl.ram, "vcpus": fl.vcpus, "disk": fl.disk,
			"swap": "", "OS-FLV-EXT-DATA:ephemeral": fl.ephemeral, "os-flavor-access:is_public": true,
		})
	}

	f.collection("images").put("img-cirros", f.newImage("img-cirros", "cirros-0.6.2", nil))

	f.collection("networks").put("net-public", map[string]any{
		"id": "net-public", "name": "public", "status": "ACTIVE", "admin_state_up": true,
		"router:external": true, "shared": false, "tags": []string{}, "project_id": "admin",
	})
}

func (f *fakeOpenStack) next() int {
	f.seq++
	return f.seq
}

func (f *fakeOpenStack) newID(prefix string) string {
	return fmt.Sprintf("%s-%04d", prefix, f.next())
}

func (f *fakeOpenStack) collection(key string) *store {
	s, ok := f.collections[key]
	if !ok {
		s = newStore()
		f.collections[key] = s
	}
	return s
}

// get returns a copy of a stored resource, or nil
func (f *fakeOpenStack) get(key, id string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.collection(key).items[id]
	if item == nil {
		return nil
	}
	return maps.Clone(item)
}

func (f *fakeOpenStack) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.collection(key).ids)
}

// find returns the stored resources of a collection matching pred
func (f *fakeOpenStack) find(key string, pred func(map[string]any) bool) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]any
	for _, item := range f.collection(key).list() {
		if pred(item) {
			out = append(out, maps.Clone(item))
		}
	}
	return out
}

func (f *fakeOpenStack) called(method, suffix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.ContainsFunc(f.requests, func(r string) bool {
		return strings.HasPrefix(r, method+" ") && strings.HasSuffix(r, suffix)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Nova and Cinder wrap faults in an object named after the fault
func writeFault(w http.ResponseWriter, status int, fault, message string) {
	writeJSON(w, status, map[string]any{fault: map[string]any{"code": status, "message": message}})
}

func writeNeutronError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]any{"NeutronError": map[string]any{"type": kind, "message": message, "detail": ""}})
}

func writeDesignateError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]any{"code": status, "type": kind, "message": message})
}

func decodeBody(r *http.Request, into any) error {
	data, err := io.ReadAll(r.Body)
	if err != nil || len(data) == 0 {
		return err
	}
	return json.Unmarshal(data, into)
}

func stringsOf(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func intOf(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case float64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(t)
		return n
	}
	return 0
}

func metadataOf(v any) map[string]any {
	out := map[string]any{}
	if m, ok := v.(map[string]any); ok {
		maps.Copy(out, m)
	}
	return out
}

// matches applies Neutron-style equality filters from the query string
func matches(item map[string]any, q url.Values) bool {
	for key, values := range q {
		switch key {
		case "limit", "marker", "fields", "sort_key", "sort_dir":
			continue
		case "tags":
			tags := stringsOf(item["tags"])
			for _, want := range strings.Split(values[0], ",") {
				if !slices.Contains(tags, want) {
					return false
				}
			}
			continue
		}
		if fmt.Sprint(item[key]) != values[0] {
			return false
		}
	}
	return true
}

// pageOf applies marker and limit, where the marker is the value of key
// of the last item of the previous page
func pageOf(items []map[string]any, q url.Values, key string) []map[string]any {
	if marker := q.Get("marker"); marker != "" {
		for i, item := range items {
			if fmt.Sprint(item[key]) == marker {
				items = items[i+1:]
				break
			}
		}
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// Keystone

func (f *fakeOpenStack) catalog() []any {
	entry := func(serviceType, name, path string) map[string]any {
		return map[string]any{
			"type": serviceType,
			"name": name,
			"id":   name + "-id",
			"endpoints": []any{map[string]any{
				"id":        name + "-public",
				"interface": "public",
				"region":    fakeRegion,
				"region_id": fakeRegion,
				"url":       f.url + path,
			}},
		}
	}
	catalog := []any{
		entry("identity", "keystone", "/v3"),
		entry("compute", "nova", "/compute/v2.1"),
		entry("network", "neutron", "/network"),
		entry("volumev3", "cinderv3", "/volume/v3/"+fakeProject),
		entry("image", "glance", "/image"),
		entry("object-store", "swift", "/swift/v1/AUTH_"+fakeProject),
	}
	if !f.withoutDNS {
		catalog = append(catalog, entry("dns", "designate", "/dns"))
	}
	return catalog
}

func (f *fakeOpenStack) token(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	status := http.StatusOK
	if r.Method == http.MethodPost {
		var body struct {
			Auth struct {
				Identity struct {
					Password struct {
						User struct {
							Password string `json:"password"`
						} `json:"user"`
					} `json:"password"`
				} `json:"identity"`
			} `json:"auth"`
		}
		if err := decodeBody(r, &body); err != nil || body.Auth.Identity.Password.User.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{
				"code": 401, "title": "Unauthorized", "message": "The request you have made requires authentication.",
			}})
			return
		}
		status = http.StatusCreated
	} else if r.Header.Get("X-Subject-Token") != fakeToken {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"code": 404, "title": "Not Found"}})
		return
	}
	w.Header().Set("X-Subject-Token", fakeToken)
	writeJSON(w, status, map[string]any{"token": map[string]any{
		"methods":    []string{"password"},
		"expires_at": "2099-01-01T00:00:00.000000Z",
		"issued_at":  "2024-01-01T00:00:00.000000Z",
		"user":       map[string]any{"id": "user-1", "name": "demo", "domain": map[string]any{"id": "default", "name": "Default"}},
		"project":    map[string]any{"id": fakeProject, "name": "demo", "domain": map[string]any{"id": "default", "name": "Default"}},
		"catalog":    f.catalog(),
	}})
}

func (f *fakeOpenStack) regions(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"regions": f.collection("regions").list()})
}

func (f *fakeOpenStack) region(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.collection("regions").items[mux.Vars(r)["id"]]
	if item == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"code": 404, "title": "Not Found"}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"region": item})
}

// Nova

func (f *fakeOpenStack) createServer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Server map[string]any `json:"server"`
	}
	if err := decodeBody(r, &body); err != nil || body.Server == nil {
		writeFault(w, http.StatusBadRequest, "badRequest", "malformed request body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s := body.Server
	f.lastServer = s

	flavorRef, _ := s["flavorRef"].(string)
	if f.collection("flavors").items[flavorRef] == nil {
		writeFault(w, http.StatusBadRequest, "badRequest", "Flavor "+flavorRef+" could not be found.")
		return
	}
	groups := []string{}
	requested, _ := s["security_groups"].([]any)
	for _, g := range requested {
		if name, ok := g.(map[string]any)["name"].(string); ok {
			groups = append(groups, name)
		}
	}

	id := f.newID("server")
	zone, _ := s["availability_zone"].(string)
	addresses := map[string]any{}
	nets, _ := s["networks"].([]any)
	for _, n := range nets {
		netID, _ := n.(map[string]any)["uuid"].(string)
		network := f.collection("networks").items[netID]
		if network == nil {
			writeFault(w, http.StatusBadRequest, "badRequest", "Network "+netID+" could not be found.")
			return
		}
		var subnetID string
		for _, sn := range f.collection("subnets").list() {
			if sn["network_id"] == netID {
				subnetID = sn["id"].(string)
				break
			}
		}
		ip := fmt.Sprintf("10.0.0.%d", 10+f.next())
		portID := f.newID("port")
		f.collection("ports").put(portID, map[string]any{
			"id": portID, "network_id": netID, "device_id": id, "device_owner": "compute:" + zone,
			"fixed_ips":       []any{map[string]any{"subnet_id": subnetID, "ip_address": ip}},
			"security_groups": slices.Clone(groups),
			"status":          "ACTIVE", "tags": []string{},
		})
		addresses[network["name"].(string)] = []any{map[string]any{"addr": ip, "version": 4, "OS-EXT-IPS:type": "fixed"}}
	}

	var image any = ""
	if ref, _ := s["imageRef"].(string); ref != "" {
		image = map[string]any{"id": ref}
	}
	f.collection("servers").put(id, map[string]any{
		"id": id, "name": s["name"], "status": "ACTIVE",
		"created": fakeTime.Format(time.RFC3339), "updated": fakeTime.Format(time.RFC3339),
		"tenant_id": fakeProject, "user_id": "user-1", "hostId": "host-1",
		"flavor": map[string]any{"id": flavorRef}, "image": image,
		"metadata": metadataOf(s["metadata"]), "key_name": s["key_name"],
		"OS-EXT-AZ:availability_zone": zone,
		"addresses":                   addresses,
	})
	writeJSON(w, http.StatusAccepted, map[string]any{"server": map[string]any{
		"id": id, "adminPass": "fake-pass", "OS-DCF:diskConfig": "MANUAL", "links": []any{},
	}})
}

func (f *fakeOpenStack) listServers(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, map[string]any{"servers": pageOf(f.collection("servers").list(), q, "id")})
}

func (f *fakeOpenStack) server(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := mux.Vars(r)["id"]
	item := f.collection("servers").items[id]
	if item == nil {
		writeFault(w, http.StatusNotFound, "itemNotFound", "Instance "+id+" could not be found.")
		return
	}
	if r.Method == http.MethodDelete {
		f.collection("servers").remove(id)
		for _, port := range f.collection("ports").list() {
			if port["device_id"] == id {
				f.collection("ports").remove(port["id"].(string))
			}
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"server": item})
}

// devicePorts returns the stored ports bound to a device
func (f *fakeOpenStack) devicePorts(deviceID string) []map[string]any {
	var out []map[string]any
	for _, port := range f.collection("ports").list() {
		if port["device_id"] == deviceID {
			out = append(out, port)
		}
	}
	return out
}

func (f *fakeOpenStack) serverAction(w http.ResponseWriter, r *http.Request) {
	var body map[string]json.RawMessage
	if err := decodeBody(r, &body); err != nil {
		writeFault(w, http.StatusBadRequest, "badRequest", "malformed request body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := mux.Vars(r)["id"]
	srv := f.collection("servers").items[id]
	if srv == nil {
		writeFault(w, http.StatusNotFound, "itemNotFound", "Instance "+id+" could not be found.")
		return
	}
	groupName := func(raw json.RawMessage) string {
		var g struct {
			Name string `json:"name"`
		}
		_ = json.Unmarshal(raw, &g)
		return g.Name
	}
	has := func(action string) bool {
		_, ok := body[action]
		return ok
	}
	switch {
	case has("os-start"), has("reboot"):
		srv["status"] = "ACTIVE"
	case has("os-stop"):
		srv["status"] = "SHUTOFF"
	case has("addSecurityGroup"):
		name := groupName(body["addSecurityGroup"])
		for _, port := range f.devicePorts(id) {
			if groups := stringsOf(port["security_groups"]); !slices.Contains(groups, name) {
				port["security_groups"] = append(groups, name)
			}
		}
	case has("removeSecurityGroup"):
		name := groupName(body["removeSecurityGroup"])
		for _, port := range f.devicePorts(id) {
			port["security_groups"] = slices.DeleteFunc(slices.Clone(stringsOf(port["security_groups"])), func(g string) bool { return g == name })
		}
	case has("createImage"):
		var req struct {
			Name     string            `json:"name"`
			Metadata map[string]string `json:"metadata"`
		}
		_ = json.Unmarshal(body["createImage"], &req)
		imageID := f.newID("image")
		f.collection("images").put(imageID, f.newImage(imageID, req.Name, req.Metadata))
		w.Header().Set("Location", f.url+"/image/v2/images/"+imageID)
		writeJSON(w, http.StatusAccepted, map[string]any{"image_id": imageID})
		return
	default:
		writeFault(w, http.StatusBadRequest, "badRequest", "unsupported action")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (f *fakeOpenStack) serverMetadata(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Metadata map[string]any `json:"metadata"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeFault(w, http.StatusBadRequest, "badRequest", "malformed request body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	srv := f.collection("servers").items[mux.Vars(r)["id"]]
	if srv == nil {
		writeFault(w, http.StatusNotFound, "itemNotFound", "instance not found")
		return
	}
	md := metadataOf(srv["metadata"])
	maps.Copy(md, body.Metadata)
	srv["metadata"] = md
	writeJSON(w, http.StatusOK, map[string]any{"metadata": md})
}

func (f *fakeOpenStack) attachVolume(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VolumeAttachment struct {
			VolumeID string `json:"volumeId"`
			Device   string `json:"device"`
		} `json:"volumeAttachment"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeFault(w, http.StatusBadRequest, "badRequest", "malformed request body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	serverID := mux.Vars(r)["id"]
	if f.collection("servers").items[serverID] == nil {
		writeFault(w, http.StatusNotFound, "itemNotFound", "Instance "+serverID+" could not be found.")
		return
	}
	volID := body.VolumeAttachment.VolumeID
	vol := f.collection("volumes").items[volID]
	if vol == nil {
		writeFault(w, http.StatusNotFound, "itemNotFound", "Volume "+volID+" could not be found.")
		return
	}
	if vol["status"] != "available" {
		writeFault(w, http.StatusBadRequest, "badRequest", "Invalid volume: volume "+volID+" status must be available")
		return
	}
	device := body.VolumeAttachment.Device
	if device == "" {
		device = "/dev/vdb"
	}
	vol["status"] = "in-use"
	vol["attachments"] = []any{map[string]any{
		"id": volID, "attachment_id": f.newID("attachment"), "server_id": serverID, "volume_id": volID, "device": device,
	}}
	writeJSON(w, http.StatusOK, map[string]any{"volumeAttachment": map[string]any{
		"id": volID, "serverId": serverID, "volumeId": volID, "device": device,
	}})
}

func (f *fakeOpenStack) detachVolume(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vars := mux.Vars(r)
	vol := f.collection("volumes").items[vars["volume"]]
	if vol == nil || vol["status"] != "in-use" {
		writeFault(w, http.StatusNotFound, "itemNotFound", "volume "+vars["volume"]+" is not attached to "+vars["id"])
		return
	}
	vol["status"] = "available"
	vol["attachments"] = []any{}
	w.WriteHeader(http.StatusAccepted)
}

func (f *fakeOpenStack) listFlavors(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"flavors": pageOf(f.collection("flavors").list(), r.URL.Query(), "id")})
}

func (f *fakeOpenStack) flavor(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := mux.Vars(r)["id"]
	item := f.collection("flavors").items[id]
	if item == nil {
		writeFault(w, http.StatusNotFound, "itemNotFound", "Flavor "+id+" could not be found.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"flavor": item})
}

func (f *fakeOpenStack) availabilityZones(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"availabilityZoneInfo": []any{
		map[string]any{"zoneName": "nova", "zoneState": map[string]any{"available": true}, "hosts": nil},
		map[string]any{"zoneName": "maintenance", "zoneState": map[string]any{"available": false}, "hosts": nil},
	}})
}

func (f *fakeOpenStack) keyPairs(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.Method == http.MethodGet {
		var out []any
		for _, kp := range f.collection("keypairs").list() {
			out = append(out, map[string]any{"keypair": kp})
		}
		writeJSON(w, http.StatusOK, map[string]any{"keypairs": out})
		return
	}
	var body struct {
		KeyPair struct {
			Name      string `json:"name"`
			PublicKey string `json:"public_key"`
		} `json:"keypair"`
	}
	if err := decodeBody(r, &body); err != nil || body.KeyPair.PublicKey == "" {
		writeFault(w, http.StatusBadRequest, "badRequest", "Keypair data is invalid")
		return
	}
	name := body.KeyPair.Name
	if f.collection("keypairs").items[name] != nil {
		writeFault(w, http.StatusConflict, "conflictingRequest", "Key pair '"+name+"' already exists.")
		return
	}
	sum := md5.Sum([]byte(body.KeyPair.PublicKey))
	kp := map[string]any{
		"name": name, "public_key": body.KeyPair.PublicKey, "type": "ssh", "user_id": "user-1",
		"fingerprint": hex.EncodeToString(sum[:]),
	}
	f.collection("keypairs").put(name, kp)
	writeJSON(w, http.StatusOK, map[string]any{"keypair": kp})
}

func (f *fakeOpenStack) keyPair(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := mux.Vars(r)["id"]
	kp := f.collection("keypairs").items[name]
	if kp == nil {
		writeFault(w, http.StatusNotFound, "itemNotFound", "Keypair "+name+" not found for user user-1")
		return
	}
	if r.Method == http.MethodDelete {
		f.collection("keypairs").remove(name)
		w.WriteHeader(http.StatusAccepted)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"keypair": kp})
}

// Neutron

// render returns the Neutron view of a stored resource. Networks list
// their subnets and security groups embed their rules.
func (f *fakeOpenStack) render(collection string, item map[string]any) map[string]any {
	out := maps.Clone(item)
	switch collection {
	case "networks":
		subnets := []string{}
		for _, sn := range f.collection("subnets").list() {
			if sn["network_id"] == item["id"] {
				subnets = append(subnets, sn["id"].(string))
			}
		}
		out["subnets"] = subnets
	case "security-groups":
		rules := []any{}
		for _, rule := range f.collection("security-group-rules").list() {
			if rule["security_group_id"] == item["id"] {
				rules = append(rules, rule)
			}
		}
		out["security_group_rules"] = rules
	}
	return out
}

func (f *fakeOpenStack) neutronList(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	collection := mux.Vars(r)["collection"]
	meta, ok := neutronCollections[collection]
	if !ok {
		writeNeutronError(w, http.StatusNotFound, "HTTPNotFound", "unknown resource "+collection)
		return
	}
	q := r.URL.Query()
	var filtered []map[string]any
	for _, item := range f.collection(collection).list() {
		if matches(item, q) {
			filtered = append(filtered, f.render(collection, item))
		}
	}
	page := pageOf(filtered, q, "id")
	if page == nil {
		page = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{meta.plural: page})
}

func (f *fakeOpenStack) neutronCreate(w http.ResponseWriter, r *http.Request) {
	collection := mux.Vars(r)["collection"]
	meta, ok := neutronCollections[collection]
	if !ok {
		writeNeutronError(w, http.StatusNotFound, "HTTPNotFound", "unknown resource "+collection)
		return
	}
	var body map[string]map[string]any
	if err := decodeBody(r, &body); err != nil || body[meta.singular] == nil {
		writeNeutronError(w, http.StatusBadRequest, "HTTPBadRequest", "malformed request body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	item := body[meta.singular]
	item["id"] = f.newID(meta.singular)
	item["project_id"] = fakeProject
	item["tags"] = []string{}
	if status, message := f.neutronDefaults(collection, item); status != 0 {
		writeNeutronError(w, status, message[0], message[1])
		return
	}
	f.collection(collection).put(item["id"].(string), item)
	writeJSON(w, http.StatusCreated, map[string]any{meta.singular: f.render(collection, item)})
}

// neutronDefaults fills server-side fields of a new resource. A non-zero
// status rejects the request with the error type and message returned.
func (f *fakeOpenStack) neutronDefaults(collection string, item map[string]any) (int, [2]string) {
	switch collection {
	case "networks":
		item["status"] = "ACTIVE"
		if _, ok := item["router:external"]; !ok {
			item["router:external"] = false
		}
		item["shared"] = false
	case "subnets":
		netID, _ := item["network_id"].(string)
		if f.collection("networks").items[netID] == nil {
			return http.StatusNotFound, [2]string{"NetworkNotFound", "Network " + netID + " could not be found."}
		}
		prefix, err := netip.ParsePrefix(fmt.Sprint(item["cidr"]))
		if err != nil {
			return http.StatusBadRequest, [2]string{"HTTPBadRequest", "Invalid input for cidr"}
		}
		item["gateway_ip"] = prefix.Masked().Addr().Next().String()
		item["enable_dhcp"] = true
	case "routers":
		item["status"] = "ACTIVE"
		if _, ok := item["external_gateway_info"]; !ok {
			item["external_gateway_info"] = nil
		}
	case "floatingips":
		netID, _ := item["floating_network_id"].(string)
		network := f.collection("networks").items[netID]
		if network == nil || network["router:external"] != true {
			return http.StatusNotFound, [2]string{"ExternalNetworkNotFound", "External network " + netID + " could not be found."}
		}
		item["floating_ip_address"] = fmt.Sprintf("203.0.113.%d", f.next())
		item["fixed_ip_address"] = nil
		item["port_id"] = nil
		item["status"] = "DOWN"
	case "security-groups":
		id := item["id"].(string)
		for _, ether := range []string{"IPv4", "IPv6"} {
			ruleID := f.newID("rule")
			f.collection("security-group-rules").put(ruleID, map[string]any{
				"id": ruleID, "security_group_id": id, "direction": "egress", "ethertype": ether,
				"protocol": nil, "port_range_min": nil, "port_range_max": nil,
				"remote_ip_prefix": nil, "remote_group_id": nil, "project_id": fakeProject,
			})
		}
	case "security-group-rules":
		groupID, _ := item["security_group_id"].(string)
		if f.collection("security-groups").items[groupID] == nil {
			return http.StatusNotFound, [2]string{"SecurityGroupNotFound", "Security group " + groupID + " does not exist"}
		}
		delete(item, "tags")
		for _, key := range []string{"protocol", "port_range_min", "port_range_max", "remote_ip_prefix", "remote_group_id"} {
			if _, ok := item[key]; !ok {
				item[key] = nil
			}
		}
		for _, rule := range f.collection("security-group-rules").list() {
			if rule["security_group_id"] != groupID {
				continue
			}
			same := true
			for _, key := range []string{"direction", "ethertype", "protocol", "port_range_min", "port_range_max", "remote_ip_prefix", "remote_group_id"} {
				if fmt.Sprint(rule[key]) != fmt.Sprint(item[key]) {
					same = false
					break
				}
			}
			if same {
				return http.StatusConflict, [2]string{"SecurityGroupRuleExists", "Security group rule already exists. Rule id is " + rule["id"].(string) + "."}
			}
		}
	}
	return 0, [2]string{}
}

func (f *fakeOpenStack) neutronItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	collection, id := vars["collection"], vars["id"]
	meta, ok := neutronCollections[collection]
	if !ok {
		writeNeutronError(w, http.StatusNotFound, "HTTPNotFound", "unknown resource "+collection)
		return
	}
	var body map[string]map[string]any
	if r.Method == http.MethodPut {
		if err := decodeBody(r, &body); err != nil || body[meta.singular] == nil {
			writeNeutronError(w, http.StatusBadRequest, "HTTPBadRequest", "malformed request body")
			return
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	item := f.collection(collection).items[id]
	if item == nil {
		writeNeutronError(w, http.StatusNotFound, "NotFound", fmt.Sprintf("%s %s could not be found.", meta.singular, id))
		return
	}
	switch r.Method {
	case http.MethodPut:
		update := body[meta.singular]
		if collection == "floatingips" {
			f.associate(item, update["port_id"])
			delete(update, "port_id")
		}
		maps.Copy(item, update)
		writeJSON(w, http.StatusOK, map[string]any{meta.singular: f.render(collection, item)})
	case http.MethodDelete:
		if status, message := f.neutronDelete(collection, item); status != 0 {
			writeNeutronError(w, status, message[0], message[1])
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusOK, map[string]any{meta.singular: f.render(collection, item)})
	}
}

// neutronDelete removes a resource unless something still uses it
func (f *fakeOpenStack) neutronDelete(collection string, item map[string]any) (int, [2]string) {
	id := item["id"].(string)
	switch collection {
	case "networks":
		for _, port := range f.collection("ports").list() {
			if port["network_id"] == id {
				return http.StatusConflict, [2]string{"NetworkInUse", "Unable to complete operation on network " + id + ". There are one or more ports still in use on the network."}
			}
		}
		for _, sn := range f.collection("subnets").list() {
			if sn["network_id"] == id {
				f.collection("subnets").remove(sn["id"].(string))
			}
		}
	case "routers":
		if len(f.devicePorts(id)) > 0 {
			return http.StatusConflict, [2]string{"RouterInUse", "Router " + id + " still has ports"}
		}
	case "security-groups":
		for _, port := range f.collection("ports").list() {
			if slices.Contains(stringsOf(port["security_groups"]), id) {
				return http.StatusConflict, [2]string{"SecurityGroupInUse", "Security Group " + id + " in use."}
			}
		}
		for _, rule := range f.collection("security-group-rules").list() {
			if rule["security_group_id"] == id {
				f.collection("security-group-rules").remove(rule["id"].(string))
			}
		}
	}
	f.collection(collection).remove(id)
	return 0, [2]string{}
}

// associate binds a floating IP to a port and mirrors the address into
// the Nova view of the owning server
func (f *fakeOpenStack) associate(fip map[string]any, portID any) {
	address := fip["floating_ip_address"]
	if oldPort, _ := fip["port_id"].(string); oldPort != "" {
		if port := f.collection("ports").items[oldPort]; port != nil {
			if srv := f.collection("servers").items[fmt.Sprint(port["device_id"])]; srv != nil {
				addresses := srv["addresses"].(map[string]any)
				for name, list := range addresses {
					addresses[name] = slices.DeleteFunc(slices.Clone(list.([]any)), func(a any) bool {
						return a.(map[string]any)["addr"] == address
					})
				}
			}
		}
	}
	id, _ := portID.(string)
	port := f.collection("ports").items[id]
	if port == nil {
		fip["port_id"], fip["fixed_ip_address"], fip["status"] = nil, nil, "DOWN"
		return
	}
	fixed := port["fixed_ips"].([]any)[0].(map[string]any)
	fip["port_id"], fip["fixed_ip_address"], fip["status"] = id, fixed["ip_address"], "ACTIVE"
	if srv := f.collection("servers").items[fmt.Sprint(port["device_id"])]; srv != nil {
		addresses := srv["addresses"].(map[string]any)
		names := slices.Sorted(maps.Keys(addresses))
		if len(names) > 0 {
			addresses[names[0]] = append(addresses[names[0]].([]any), map[string]any{
				"addr": address, "version": 4, "OS-EXT-IPS:type": "floating",
			})
		}
	}
}

func (f *fakeOpenStack) neutronTags(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Tags []string `json:"tags"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeNeutronError(w, http.StatusBadRequest, "HTTPBadRequest", "malformed request body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	vars := mux.Vars(r)
	item := f.collection(vars["collection"]).items[vars["id"]]
	if item == nil {
		writeNeutronError(w, http.StatusNotFound, "NotFound", vars["id"]+" could not be found.")
		return
	}
	if body.Tags == nil {
		body.Tags = []string{}
	}
	item["tags"] = body.Tags
	writeJSON(w, http.StatusOK, map[string]any{"tags": body.Tags})
}

func (f *fakeOpenStack) addRouterInterface(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SubnetID string `json:"subnet_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeNeutronError(w, http.StatusBadRequest, "HTTPBadRequest", "malformed request body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	routerID := mux.Vars(r)["id"]
	if f.collection("routers").items[routerID] == nil {
		writeNeutronError(w, http.StatusNotFound, "RouterNotFound", "Router "+routerID+" could not be found")
		return
	}
	subnet := f.collection("subnets").items[body.SubnetID]
	if subnet == nil {
		writeNeutronError(w, http.StatusNotFound, "SubnetNotFound", "Subnet "+body.SubnetID+" could not be found.")
		return
	}
	portID := f.newID("port")
	f.collection("ports").put(portID, map[string]any{
		"id": portID, "network_id": subnet["network_id"], "device_id": routerID,
		"device_owner":    "network:router_interface",
		"fixed_ips":       []any{map[string]any{"subnet_id": body.SubnetID, "ip_address": subnet["gateway_ip"]}},
		"security_groups": []string{}, "status": "ACTIVE", "tags": []string{},
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"id": routerID, "subnet_id": body.SubnetID, "port_id": portID, "tenant_id": fakeProject,
	})
}

func (f *fakeOpenStack) removeRouterInterface(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SubnetID string `json:"subnet_id"`
		PortID   string `json:"port_id"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeNeutronError(w, http.StatusBadRequest, "HTTPBadRequest", "malformed request body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	routerID := mux.Vars(r)["id"]
	for _, port := range f.devicePorts(routerID) {
		fixed := port["fixed_ips"].([]any)[0].(map[string]any)
		if port["id"] == body.PortID || (body.SubnetID != "" && fixed["subnet_id"] == body.SubnetID) {
			f.collection("ports").remove(port["id"].(string))
			writeJSON(w, http.StatusOK, map[string]any{
				"id": routerID, "subnet_id": fixed["subnet_id"], "port_id": port["id"], "tenant_id": fakeProject,
			})
			return
		}
	}
	writeNeutronError(w, http.StatusNotFound, "RouterInterfaceNotFoundForSubnet", "Router "+routerID+" has no interface on subnet "+body.SubnetID)
}

// Cinder

func (f *fakeOpenStack) listCinder(key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		page := pageOf(f.collection(key).list(), r.URL.Query(), "id")
		if page == nil {
			page = []map[string]any{}
		}
		writeJSON(w, http.StatusOK, map[string]any{key: page})
	}
}

func (f *fakeOpenStack) createVolume(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Volume map[string]any `json:"volume"`
	}
	if err := decodeBody(r, &body); err != nil || body.Volume == nil {
		writeFault(w, http.StatusBadRequest, "badRequest", "malformed request body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	v := body.Volume
	var snapshotID any
	if id, _ := v["snapshot_id"].(string); id != "" {
		if f.collection("snapshots").items[id] == nil {
			writeFault(w, http.StatusNotFound, "itemNotFound", "Snapshot "+id+" could not be found.")
			return
		}
		snapshotID = id
	}
	id := f.newID("volume")
	vol := map[string]any{
		"id": id, "name": v["name"], "description": v["description"], "size": intOf(v["size"]),
		"availability_zone": v["availability_zone"], "snapshot_id": snapshotID,
		"metadata": metadataOf(v["metadata"]), "status": "available", "attachments": []any{},
		"created_at": fakeCinderTime, "volume_type": "__DEFAULT__", "bootable": "false",
		"multiattach": false, "encrypted": false,
	}
	f.collection("volumes").put(id, vol)
	writeJSON(w, http.StatusAccepted, map[string]any{"volume": vol})
}

func (f *fakeOpenStack) volume(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Volume map[string]any `json:"volume"`
	}
	if r.Method == http.MethodPut {
		if err := decodeBody(r, &body); err != nil {
			writeFault(w, http.StatusBadRequest, "badRequest", "malformed request body")
			return
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := mux.Vars(r)["id"]
	vol := f.collection("volumes").items[id]
	if vol == nil {
		writeFault(w, http.StatusNotFound, "itemNotFound", "Volume "+id+" could not be found.")
		return
	}
	switch r.Method {
	case http.MethodPut:
		for _, key := range []string{"name", "description"} {
			if value, ok := body.Volume[key]; ok {
				vol[key] = value
			}
		}
		if md, ok := body.Volume["metadata"]; ok {
			vol["metadata"] = metadataOf(md)
		}
		writeJSON(w, http.StatusOK, map[string]any{"volume": vol})
	case http.MethodDelete:
		if vol["status"] == "in-use" {
			writeFault(w, http.StatusBadRequest, "badRequest", "Invalid volume: Volume status must be available or error")
			return
		}
		f.collection("volumes").remove(id)
		w.WriteHeader(http.StatusAccepted)
	default:
		writeJSON(w, http.StatusOK, map[string]any{"volume": vol})
	}
}

func (f *fakeOpenStack) createSnapshot(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Snapshot map[string]any `json:"snapshot"`
	}
	if err := decodeBody(r, &body); err != nil || body.Snapshot == nil {
		writeFault(w, http.StatusBadRequest, "badRequest", "malformed request body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s := body.Snapshot
	volID, _ := s["volume_id"].(string)
	vol := f.collection("volumes").items[volID]
	if vol == nil {
		writeFault(w, http.StatusNotFound, "itemNotFound", "Volume "+volID+" could not be found.")
		return
	}
	if vol["status"] == "in-use" && s["force"] != true {
		writeFault(w, http.StatusBadRequest, "badRequest", "Invalid volume: Volume "+volID+" status must be available")
		return
	}
	id := f.newID("snapshot")
	snap := map[string]any{
		"id": id, "name": s["name"], "description": s["description"], "volume_id": volID,
		"size": vol["size"], "status": "available", "metadata": metadataOf(s["metadata"]),
		"created_at": fakeCinderTime,
	}
	f.collection("snapshots").put(id, snap)
	writeJSON(w, http.StatusAccepted, map[string]any{"snapshot": snap})
}

func (f *fakeOpenStack) snapshot(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := mux.Vars(r)["id"]
	snap := f.collection("snapshots").items[id]
	if snap == nil {
		writeFault(w, http.StatusNotFound, "itemNotFound", "Snapshot "+id+" could not be found.")
		return
	}
	if r.Method == http.MethodDelete {
		f.collection("snapshots").remove(id)
		w.WriteHeader(http.StatusAccepted)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"snapshot": snap})
}

// snapshotMetadata replaces the metadata on PUT and merges it on POST
func (f *fakeOpenStack) snapshotMetadata(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Metadata map[string]any `json:"metadata"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeFault(w, http.StatusBadRequest, "badRequest", "malformed request body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := f.collection("snapshots").items[mux.Vars(r)["id"]]
	if snap == nil {
		writeFault(w, http.StatusNotFound, "itemNotFound", "snapshot not found")
		return
	}
	md := metadataOf(body.Metadata)
	if r.Method == http.MethodPost {
		md = metadataOf(snap["metadata"])
		maps.Copy(md, body.Metadata)
	}
	snap["metadata"] = md
	writeJSON(w, http.StatusOK, map[string]any{"metadata": md})
}

// Glance

// newImage builds a Glance image; properties become top-level keys
func (f *fakeOpenStack) newImage(id, name string, properties map[string]string) map[string]any {
	img := map[string]any{
		"id": id, "name": name, "status": "active", "visibility": "public", "owner": fakeProject,
		"min_disk": 1, "min_ram": 0, "size": 21430272, "disk_format": "qcow2", "container_format": "bare",
		"created_at": fakeTime.Format(time.RFC3339), "updated_at": fakeTime.Format(time.RFC3339),
		"tags": []string{}, "protected": false,
		"self": "/v2/images/" + id, "file": "/v2/images/" + id + "/file", "schema": "/v2/schemas/image",
	}
	for k, v := range properties {
		img[k] = v
	}
	return img
}

func (f *fakeOpenStack) listImages(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	page := pageOf(f.collection("images").list(), r.URL.Query(), "id")
	if page == nil {
		page = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"images": page, "schema": "/v2/schemas/images", "first": "/v2/images"})
}

func (f *fakeOpenStack) image(w http.ResponseWriter, r *http.Request) {
	var patch []struct {
		Op    string `json:"op"`
		Path  string `json:"path"`
		Value any    `json:"value"`
	}
	if r.Method == http.MethodPatch {
		if err := decodeBody(r, &patch); err != nil {
			http.Error(w, "malformed JSON patch", http.StatusBadRequest)
			return
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id := mux.Vars(r)["id"]
	img := f.collection("images").items[id]
	if img == nil {
		http.Error(w, "No image found with ID "+id, http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodDelete:
		f.collection("images").remove(id)
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodPatch:
		for _, op := range patch {
			key := strings.TrimPrefix(op.Path, "/")
			_, exists := img[key]
			switch {
			case op.Op == "add":
				img[key] = op.Value
			case op.Op == "replace" && exists:
				img[key] = op.Value
			case op.Op == "remove" && exists:
				delete(img, key)
			default:
				http.Error(w, "Property "+key+" does not exist.", http.StatusConflict)
				return
			}
		}
	}
	writeJSON(w, http.StatusOK, img)
}

// Swift

func (f *fakeOpenStack) objectsOf(container string) *store {
	return f.collection("objects/" + container)
}

// swiftPage sorts by name, then applies prefix, marker and limit
func swiftPage(items []map[string]any, q url.Values) []map[string]any {
	sort.Slice(items, func(i, j int) bool { return items[i]["name"].(string) < items[j]["name"].(string) })
	out := []map[string]any{}
	limit, _ := strconv.Atoi(q.Get("limit"))
	for _, item := range items {
		name := item["name"].(string)
		if !strings.HasPrefix(name, q.Get("prefix")) || (q.Get("marker") != "" && name <= q.Get("marker")) {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, item)
	}
	return out
}

func (f *fakeOpenStack) listContainers(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []map[string]any
	for _, c := range f.collection("containers").list() {
		name := c["name"].(string)
		var bytes int
		for _, o := range f.objectsOf(name).list() {
			bytes += o["bytes"].(int)
		}
		items = append(items, map[string]any{"name": name, "count": len(f.objectsOf(name).ids), "bytes": bytes})
	}
	writeJSON(w, http.StatusOK, swiftPage(items, r.URL.Query()))
}

func (f *fakeOpenStack) container(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := mux.Vars(r)["container"]
	c := f.collection("containers").items[name]
	if c == nil && r.Method != http.MethodPut {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodPut:
		if c != nil {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		f.collection("containers").put(name, map[string]any{"name": name})
		w.WriteHeader(http.StatusCreated)
	case http.MethodDelete:
		if len(f.objectsOf(name).ids) > 0 {
			http.Error(w, "There was a conflict when trying to complete your request.", http.StatusConflict)
			return
		}
		f.collection("containers").remove(name)
		w.WriteHeader(http.StatusNoContent)
	case http.MethodHead:
		w.Header().Set("X-Container-Object-Count", strconv.Itoa(len(f.objectsOf(name).ids)))
		w.Header().Set("X-Container-Bytes-Used", "0")
		w.Header().Set("X-Timestamp", "1704164645.00000")
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusOK, swiftPage(f.objectsOf(name).list(), r.URL.Query()))
	}
}

func (f *fakeOpenStack) object(w http.ResponseWriter, r *http.Request) {
	var data []byte
	if r.Method == http.MethodPut {
		var err error
		if data, err = io.ReadAll(r.Body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	vars := mux.Vars(r)
	container, name := vars["container"], vars["object"]
	if f.collection("containers").items[container] == nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	key := container + "/" + name
	if r.Method == http.MethodPut {
		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		sum := md5.Sum(data)
		f.blobs[key] = data
		f.objectsOf(container).put(name, map[string]any{
			"name": name, "bytes": len(data), "hash": hex.EncodeToString(sum[:]),
			"content_type": contentType, "last_modified": fakeTime.Format("2006-01-02T15:04:05.000000"),
		})
		w.Header().Set("ETag", hex.EncodeToString(sum[:]))
		w.Header().Set("Last-Modified", fakeTime.Format(http.TimeFormat))
		w.WriteHeader(http.StatusCreated)
		return
	}
	obj := f.objectsOf(container).items[name]
	if obj == nil {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodDelete:
		f.objectsOf(container).remove(name)
		delete(f.blobs, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.Header().Set("Content-Length", strconv.Itoa(len(f.blobs[key])))
		w.Header().Set("Content-Type", obj["content_type"].(string))
		w.Header().Set("ETag", obj["hash"].(string))
		w.Header().Set("Last-Modified", fakeTime.Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			_, _ = w.Write(f.blobs[key])
		}
	}
}

// Designate

func (f *fakeOpenStack) zones(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		f.mu.Lock()
		defer f.mu.Unlock()
		page := pageOf(f.collection("zones").list(), r.URL.Query(), "id")
		if page == nil {
			page = []map[string]any{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"zones": page, "links": map[string]any{}, "metadata": map[string]any{"total_count": len(page)}})
		return
	}
	var body struct {
		Name        string `json:"name"`
		Email       string `json:"email"`
		Type        string `json:"type"`
		Description string `json:"description"`
	}
	if err := decodeBody(r, &body); err != nil || body.Email == "" || !strings.HasSuffix(body.Name, ".") {
		writeDesignateError(w, http.StatusBadRequest, "invalid_object", "Provided object does not match schema")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, z := range f.collection("zones").list() {
		if z["name"] == body.Name {
			writeDesignateError(w, http.StatusConflict, "duplicate_zone", "Duplicate Zone")
			return
		}
	}
	id := f.newID("zone")
	zone := map[string]any{
		"id": id, "name": body.Name, "email": body.Email, "type": body.Type, "description": body.Description,
		"ttl": 3600, "serial": 1704164645, "status": "ACTIVE", "action": "NONE", "version": 1,
		"pool_id": "pool-1", "project_id": fakeProject, "masters": []string{}, "attributes": map[string]any{},
	}
	f.collection("zones").put(id, zone)
	for _, rs := range []struct {
		kind    string
		records []string
	}{
		{"NS", []string{"ns1.devstack.org."}},
		{"SOA", []string{"ns1.devstack.org. " + strings.Replace(body.Email, "@", ".", 1) + ". 1704164645 3582 600 86400 3600"}},
	} {
		rsID := f.newID("recordset")
		f.collection("recordsets").put(rsID, map[string]any{
			"id": rsID, "zone_id": id, "zone_name": body.Name, "name": body.Name, "type": rs.kind,
			"records": rs.records, "ttl": 3600, "status": "ACTIVE", "action": "NONE", "version": 1,
			"project_id": fakeProject,
		})
	}
	writeJSON(w, http.StatusAccepted, zone)
}

func (f *fakeOpenStack) zone(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := mux.Vars(r)["id"]
	zone := f.collection("zones").items[id]
	if zone == nil {
		writeDesignateError(w, http.StatusNotFound, "zone_not_found", "Could not find Zone")
		return
	}
	if r.Method == http.MethodDelete {
		f.collection("zones").remove(id)
		for _, rs := range f.collection("recordsets").list() {
			if rs["zone_id"] == id {
				f.collection("recordsets").remove(rs["id"].(string))
			}
		}
		zone["status"], zone["action"] = "PENDING", "DELETE"
		writeJSON(w, http.StatusAccepted, zone)
		return
	}
	writeJSON(w, http.StatusOK, zone)
}

func (f *fakeOpenStack) recordSets(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name    string   `json:"name"`
		Type    string   `json:"type"`
		TTL     int      `json:"ttl"`
		Records []string `json:"records"`
	}
	if r.Method == http.MethodPost {
		if err := decodeBody(r, &body); err != nil || len(body.Records) == 0 {
			writeDesignateError(w, http.StatusBadRequest, "invalid_object", "Provided object does not match schema")
			return
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	zoneID := mux.Vars(r)["zone"]
	zone := f.collection("zones").items[zoneID]
	if zone == nil {
		writeDesignateError(w, http.StatusNotFound, "zone_not_found", "Could not find Zone")
		return
	}
	var sets []map[string]any
	for _, rs := range f.collection("recordsets").list() {
		if rs["zone_id"] == zoneID {
			sets = append(sets, rs)
		}
	}
	if r.Method == http.MethodGet {
		page := pageOf(sets, r.URL.Query(), "id")
		if page == nil {
			page = []map[string]any{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"recordsets": page, "links": map[string]any{}, "metadata": map[string]any{"total_count": len(sets)}})
		return
	}
	for _, rs := range sets {
		if rs["name"] == body.Name && rs["type"] == body.Type {
			writeDesignateError(w, http.StatusConflict, "duplicate_recordset", "Duplicate RecordSet")
			return
		}
	}
	id := f.newID("recordset")
	rs := map[string]any{
		"id": id, "zone_id": zoneID, "zone_name": zone["name"], "name": body.Name, "type": body.Type,
		"records": body.Records, "ttl": body.TTL, "status": "ACTIVE", "action": "CREATE", "version": 1,
		"project_id": fakeProject,
	}
	f.collection("recordsets").put(id, rs)
	writeJSON(w, http.StatusAccepted, rs)
}

func (f *fakeOpenStack) recordSet(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vars := mux.Vars(r)
	rs := f.collection("recordsets").items[vars["id"]]
	if rs == nil || rs["zone_id"] != vars["zone"] {
		writeDesignateError(w, http.StatusNotFound, "recordset_not_found", "Could not find RecordSet")
		return
	}
	if r.Method == http.MethodDelete {
		f.collection("recordsets").remove(vars["id"])
		rs["status"], rs["action"] = "PENDING", "DELETE"
		writeJSON(w, http.StatusAccepted, rs)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}
