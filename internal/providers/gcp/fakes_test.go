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

package gcp

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	compute "google.golang.org/api/compute/v1"
)

const fakeLinkBase = "https://www.googleapis.com/compute/v1/"

// store is an ordered collection of JSON resources keyed by name
type store struct {
	names []string
	items map[string]map[string]any
}

func newStore() *store { return &store{items: map[string]map[string]any{}} }

func (s *store) put(name string, item map[string]any) {
	if _, ok := s.items[name]; !ok {
		s.names = append(s.names, name)
	}
	s.items[name] = item
}

func (s *store) remove(name string) bool {
	if _, ok := s.items[name]; !ok {
		return false
	}
	delete(s.items, name)
	s.names = slices.DeleteFunc(s.names, func(n string) bool { return n == name })
	return true
}

func (s *store) list() []map[string]any {
	out := make([]map[string]any, 0, len(s.names))
	for _, n := range s.names {
		out = append(out, s.items[n])
	}
	return out
}

// fakeGCP serves the subset of the Compute, Cloud DNS and Cloud Storage
// JSON APIs the provider uses. Operations finish immediately.
type fakeGCP struct {
	mu  sync.Mutex
	seq int

	metadata    *compute.Metadata
	collections map[string]*store
	media       map[string][]byte

	// requests records "METHOD path" of every call
	requests []string
	// maxResults records the page size of compute list calls
	maxResults []string
}

func newFakeGCP() (*fakeGCP, *httptest.Server) {
	f := &fakeGCP{
		metadata:    &compute.Metadata{Fingerprint: "fp-0"},
		collections: map[string]*store{},
		media:       map[string][]byte{},
	}
	r := mux.NewRouter()
	r.PathPrefix("/compute/v1/projects/{project}").HandlerFunc(f.compute)

	dnsRouter := r.PathPrefix("/dns/v1/projects/{project}/managedZones").Subrouter()
	dnsRouter.HandleFunc("", f.managedZones).Methods(http.MethodGet, http.MethodPost)
	dnsRouter.HandleFunc("/{zone}", f.managedZone).Methods(http.MethodGet, http.MethodDelete)
	dnsRouter.HandleFunc("/{zone}/rrsets", f.recordSets).Methods(http.MethodGet, http.MethodPost)
	dnsRouter.HandleFunc("/{zone}/rrsets/{name}/{type}", f.recordSet).Methods(http.MethodGet, http.MethodDelete)

	r.HandleFunc("/storage/v1/b", f.buckets).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/storage/v1/b/{bucket}", f.bucket).Methods(http.MethodGet, http.MethodDelete)
	r.HandleFunc("/storage/v1/b/{bucket}/o", f.objects).Methods(http.MethodGet)
	r.HandleFunc("/storage/v1/b/{bucket}/o/{object}", f.object).Methods(http.MethodGet, http.MethodDelete)
	r.HandleFunc("/upload/storage/v1/b/{bucket}/o", f.upload).Methods(http.MethodPost)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, req.Method+" "+req.URL.Path)
		f.mu.Unlock()
		r.ServeHTTP(w, req)
	}))
	return f, srv
}

func (f *fakeGCP) next() int {
	f.seq++
	return f.seq
}

func (f *fakeGCP) collection(key string) *store {
	s, ok := f.collections[key]
	if !ok {
		s = newStore()
		f.collections[key] = s
	}
	return s
}

// seed adds a resource under a compute collection path such as
// "projects/p/regions/us-central1/subnetworks"
func (f *fakeGCP) seed(key string, item map[string]any) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insert(key, item)
}

func (f *fakeGCP) get(key, name string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.collection(key).items[name]
}

func (f *fakeGCP) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.collection(key).names)
}

func (f *fakeGCP) called(method, suffix string) bool {
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

func writeError(w http.ResponseWriter, code int, reason, message string) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
			"errors":  []map[string]any{{"reason": reason, "message": message}},
		},
	})
}

func decodeBody(r *http.Request) (map[string]any, error) {
	item := map[string]any{}
	if r.Body == nil {
		return item, nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil || len(data) == 0 {
		return item, err
	}
	return item, json.Unmarshal(data, &item)
}

// pageOf slices items with an index page token
func pageOf(items []map[string]any, r *http.Request) ([]map[string]any, string) {
	start, _ := strconv.Atoi(r.URL.Query().Get("pageToken"))
	start = min(start, len(items))
	end := len(items)
	if limit, err := strconv.Atoi(r.URL.Query().Get("maxResults")); err == nil && limit > 0 && start+limit < end {
		end = start + limit
	}
	if end < len(items) {
		return items[start:end], strconv.Itoa(end)
	}
	return items[start:end], ""
}

// insert stores item under key, filling the fields GCE computes. The
// caller holds the lock.
func (f *fakeGCP) insert(key string, item map[string]any) map[string]any {
	name, _ := item["name"].(string)
	n := f.next()
	item["id"] = strconv.Itoa(n)
	item["selfLink"] = fakeLinkBase + key + "/" + name
	item["creationTimestamp"] = time.Date(2025, 1, 1, 0, 0, n, 0, time.UTC).Format(time.RFC3339)

	segments := strings.Split(key, "/")
	scope := strings.Join(segments[:len(segments)-1], "/")
	switch segments[2] {
	case "zones":
		item["zone"] = fakeLinkBase + scope
	case "regions":
		item["region"] = fakeLinkBase + scope
	}

	switch segments[len(segments)-1] {
	case "instances":
		item["status"] = "RUNNING"
		item["labelFingerprint"] = "lf-" + strconv.Itoa(n)
		if nics, ok := item["networkInterfaces"].([]any); ok {
			for i, nic := range nics {
				nicMap := nic.(map[string]any)
				nicMap["networkIP"] = fmt.Sprintf("10.0.0.%d", n+i)
				if acs, ok := nicMap["accessConfigs"].([]any); ok {
					for _, ac := range acs {
						ac.(map[string]any)["natIP"] = fmt.Sprintf("34.0.0.%d", n)
					}
				}
			}
		}
	case "disks", "images", "snapshots":
		item["status"] = "READY"
	case "addresses":
		item["status"] = "RESERVED"
		item["address"] = fmt.Sprintf("35.0.0.%d", n)
	case "subnetworks":
		network, _ := item["network"].(string)
		netKey := strings.Join(segments[:2], "/") + "/global/networks"
		if parent, ok := f.collection(netKey).items[lastSegment(network)]; ok {
			subnets, _ := parent["subnetworks"].([]any)
			parent["subnetworks"] = append(subnets, item["selfLink"])
		}
	}
	f.collection(key).put(name, item)
	return item
}

func (f *fakeGCP) operation(target map[string]any) map[string]any {
	op := map[string]any{
		"name":   fmt.Sprintf("operation-%d", f.next()),
		"status": statusDone,
	}
	if target != nil {
		op["targetLink"] = target["selfLink"]
		for _, k := range []string{"zone", "region"} {
			if v, ok := target[k]; ok {
				op[k] = v
			}
		}
	}
	return op
}

func (f *fakeGCP) compute(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	project := mux.Vars(r)["project"]
	base := "projects/" + project
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/compute/v1/"+base), "/")
	var segments []string
	if rest != "" {
		segments = strings.Split(rest, "/")
	}

	switch {
	case len(segments) == 0:
		writeJSON(w, http.StatusOK, map[string]any{
			"name":                   project,
			"selfLink":               fakeLinkBase + base,
			"commonInstanceMetadata": f.metadata,
		})
		return
	case len(segments) == 1 && segments[0] == "setCommonInstanceMetadata":
		var md compute.Metadata
		if err := json.NewDecoder(r.Body).Decode(&md); err != nil {
			writeError(w, http.StatusBadRequest, "invalid", err.Error())
			return
		}
		if md.Fingerprint != f.metadata.Fingerprint {
			writeError(w, http.StatusPreconditionFailed, "conditionNotMet", "fingerprint mismatch")
			return
		}
		md.Fingerprint = fmt.Sprintf("fp-%d", f.next())
		f.metadata = &md
		writeJSON(w, http.StatusOK, f.operation(nil))
		return
	}

	scope := "global"
	switch segments[0] {
	case "global":
		segments = segments[1:]
	case "zones", "regions":
		if len(segments) == 2 {
			writeJSON(w, http.StatusOK, map[string]any{
				"name":     segments[1],
				"selfLink": fakeLinkBase + base + "/" + rest,
				"status":   "UP",
			})
			return
		}
		scope = segments[0] + "/" + segments[1]
		segments = segments[2:]
	}
	if segments[0] == "operations" {
		writeJSON(w, http.StatusOK, map[string]any{"name": segments[len(segments)-1], "status": statusDone})
		return
	}

	key := base + "/" + scope + "/" + segments[0]
	items := f.collection(key)
	switch {
	case len(segments) == 1 && r.Method == http.MethodGet:
		f.maxResults = append(f.maxResults, r.URL.Query().Get("maxResults"))
		page, next := pageOf(items.list(), r)
		writeJSON(w, http.StatusOK, map[string]any{"items": page, "nextPageToken": next})
	case len(segments) == 1 && r.Method == http.MethodPost:
		item, err := decodeBody(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid", err.Error())
			return
		}
		name, _ := item["name"].(string)
		if _, ok := items.items[name]; ok {
			writeError(w, http.StatusConflict, "alreadyExists", fmt.Sprintf("The resource '%s' already exists", name))
			return
		}
		writeJSON(w, http.StatusOK, f.operation(f.insert(key, item)))
	case len(segments) >= 2:
		name := segments[1]
		item, ok := items.items[name]
		if !ok {
			writeError(w, http.StatusNotFound, "notFound", fmt.Sprintf("The resource '%s' was not found", name))
			return
		}
		switch {
		case len(segments) == 2 && r.Method == http.MethodGet:
			writeJSON(w, http.StatusOK, item)
		case len(segments) == 2 && r.Method == http.MethodDelete:
			items.remove(name)
			writeJSON(w, http.StatusOK, f.operation(item))
		case len(segments) == 2 && r.Method == http.MethodPatch:
			patch, err := decodeBody(r)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid", err.Error())
				return
			}
			maps.Copy(item, patch)
			writeJSON(w, http.StatusOK, f.operation(item))
		case len(segments) == 3 && r.Method == http.MethodPost:
			body, err := decodeBody(r)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid", err.Error())
				return
			}
			f.action(item, segments[2], body)
			writeJSON(w, http.StatusOK, f.operation(item))
		default:
			writeError(w, http.StatusBadRequest, "unsupported", r.Method+" "+r.URL.Path)
		}
	default:
		writeError(w, http.StatusBadRequest, "unsupported", r.Method+" "+r.URL.Path)
	}
}

// action applies the instance and disk methods the provider calls
func (f *fakeGCP) action(item map[string]any, action string, body map[string]any) {
	switch action {
	case "setLabels":
		item["labels"] = body["labels"]
		item["labelFingerprint"] = fmt.Sprintf("lf-%d", f.next())
	case "setTags":
		body["fingerprint"] = fmt.Sprintf("tf-%d", f.next())
		item["tags"] = body
	case "stop":
		item["status"] = "TERMINATED"
	case "start", "reset":
		item["status"] = "RUNNING"
	}
}

func (f *fakeGCP) managedZones(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	project := mux.Vars(r)["project"]
	zones := f.collection("dns/" + project)

	if r.Method == http.MethodGet {
		page, next := pageOf(zones.list(), r)
		writeJSON(w, http.StatusOK, map[string]any{"managedZones": page, "nextPageToken": next})
		return
	}
	zone, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid", err.Error())
		return
	}
	name, _ := zone["name"].(string)
	dnsName, _ := zone["dnsName"].(string)
	if _, ok := zones.items[name]; ok {
		writeError(w, http.StatusConflict, "alreadyExists", fmt.Sprintf("The resource '%s' already exists", name))
		return
	}
	zone["id"] = strconv.Itoa(f.next())
	zone["creationTime"] = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
	zone["nameServers"] = []string{"ns-cloud-a1.googledomains.com."}
	zones.put(name, zone)

	records := f.collection("dns/" + project + "/" + name)
	records.put(dnsName+"/NS", map[string]any{"name": dnsName, "type": "NS", "ttl": 21600, "rrdatas": []string{"ns-cloud-a1.googledomains.com."}})
	records.put(dnsName+"/SOA", map[string]any{"name": dnsName, "type": "SOA", "ttl": 21600, "rrdatas": []string{"ns-cloud-a1.googledomains.com. cloud-dns-hostmaster.google.com. 1 21600 3600 259200 300"}})
	writeJSON(w, http.StatusOK, zone)
}

func (f *fakeGCP) managedZone(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vars := mux.Vars(r)
	zones := f.collection("dns/" + vars["project"])
	zone, ok := zones.items[vars["zone"]]
	if !ok {
		writeError(w, http.StatusNotFound, "notFound", fmt.Sprintf("The 'parameters.managedZone' resource named '%s' does not exist.", vars["zone"]))
		return
	}
	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, zone)
		return
	}
	if f.collection("dns/"+vars["project"]+"/"+vars["zone"]).count() > 2 {
		writeError(w, http.StatusBadRequest, "containerNotEmpty", "The resource named '"+vars["zone"]+"' cannot be deleted because it is not empty")
		return
	}
	zones.remove(vars["zone"])
	delete(f.collections, "dns/"+vars["project"]+"/"+vars["zone"])
	w.WriteHeader(http.StatusNoContent)
}

func (s *store) count() int { return len(s.names) }

func (f *fakeGCP) recordSets(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vars := mux.Vars(r)
	if _, ok := f.collection("dns/" + vars["project"]).items[vars["zone"]]; !ok {
		writeError(w, http.StatusNotFound, "notFound", "zone not found")
		return
	}
	records := f.collection("dns/" + vars["project"] + "/" + vars["zone"])
	if r.Method == http.MethodGet {
		page, next := pageOf(records.list(), r)
		writeJSON(w, http.StatusOK, map[string]any{"rrsets": page, "nextPageToken": next})
		return
	}
	rrs, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid", err.Error())
		return
	}
	key := fmt.Sprintf("%s/%s", rrs["name"], rrs["type"])
	if _, ok := records.items[key]; ok {
		writeError(w, http.StatusConflict, "alreadyExists", "The resource '"+key+"' already exists")
		return
	}
	records.put(key, rrs)
	writeJSON(w, http.StatusOK, rrs)
}

func (f *fakeGCP) recordSet(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vars := mux.Vars(r)
	records := f.collection("dns/" + vars["project"] + "/" + vars["zone"])
	key := vars["name"] + "/" + vars["type"]
	rrs, ok := records.items[key]
	if !ok {
		writeError(w, http.StatusNotFound, "notFound", "The 'parameters.name' resource named '"+key+"' does not exist.")
		return
	}
	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, rrs)
		return
	}
	records.remove(key)
	writeJSON(w, http.StatusOK, map[string]any{})
}

func (f *fakeGCP) buckets(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	buckets := f.collection("storage")
	if r.Method == http.MethodGet {
		page, next := pageOf(buckets.list(), r)
		writeJSON(w, http.StatusOK, map[string]any{"kind": "storage#buckets", "items": page, "nextPageToken": next})
		return
	}
	bucket, err := decodeBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid", err.Error())
		return
	}
	name, _ := bucket["name"].(string)
	if _, ok := buckets.items[name]; ok {
		writeError(w, http.StatusConflict, "conflict", "Your previous request to create the named bucket succeeded and you already own it.")
		return
	}
	bucket["kind"] = "storage#bucket"
	bucket["id"] = name
	bucket["timeCreated"] = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
	if bucket["location"] == nil {
		bucket["location"] = "US"
	}
	buckets.put(name, bucket)
	writeJSON(w, http.StatusOK, bucket)
}

func (f *fakeGCP) bucket(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := mux.Vars(r)["bucket"]
	buckets := f.collection("storage")
	bucket, ok := buckets.items[name]
	if !ok {
		writeError(w, http.StatusNotFound, "notFound", "The specified bucket does not exist.")
		return
	}
	if r.Method == http.MethodGet {
		writeJSON(w, http.StatusOK, bucket)
		return
	}
	if f.collection("storage/"+name).count() > 0 {
		writeError(w, http.StatusConflict, "conflict", "The bucket you tried to delete is not empty.")
		return
	}
	buckets.remove(name)
	w.WriteHeader(http.StatusNoContent)
}

func (f *fakeGCP) objects(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := mux.Vars(r)["bucket"]
	if _, ok := f.collection("storage").items[name]; !ok {
		writeError(w, http.StatusNotFound, "notFound", "The specified bucket does not exist.")
		return
	}
	prefix := r.URL.Query().Get("prefix")
	var matched []map[string]any
	for _, obj := range f.collection("storage/" + name).list() {
		if strings.HasPrefix(obj["name"].(string), prefix) {
			matched = append(matched, obj)
		}
	}
	page, next := pageOf(matched, r)
	writeJSON(w, http.StatusOK, map[string]any{"kind": "storage#objects", "items": page, "nextPageToken": next})
}

func (f *fakeGCP) object(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vars := mux.Vars(r)
	objects := f.collection("storage/" + vars["bucket"])
	obj, ok := objects.items[vars["object"]]
	if !ok {
		writeError(w, http.StatusNotFound, "notFound", "No such object: "+vars["bucket"]+"/"+vars["object"])
		return
	}
	switch {
	case r.Method == http.MethodDelete:
		objects.remove(vars["object"])
		delete(f.media, vars["bucket"]+"/"+vars["object"])
		w.WriteHeader(http.StatusNoContent)
	case r.URL.Query().Get("alt") == "media":
		data := f.media[vars["bucket"]+"/"+vars["object"]]
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	default:
		writeJSON(w, http.StatusOK, obj)
	}
}

// upload accepts multipart uploads: a JSON metadata part followed by the media
func (f *fakeGCP) upload(w http.ResponseWriter, r *http.Request) {
	bucket := mux.Vars(r)["bucket"]
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid", err.Error())
		return
	}
	reader := multipart.NewReader(r.Body, params["boundary"])
	metaPart, err := reader.NextPart()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid", err.Error())
		return
	}
	obj := map[string]any{}
	if err := json.NewDecoder(metaPart).Decode(&obj); err != nil {
		writeError(w, http.StatusBadRequest, "invalid", err.Error())
		return
	}
	mediaPart, err := reader.NextPart()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid", err.Error())
		return
	}
	data, err := io.ReadAll(mediaPart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid", err.Error())
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.collection("storage").items[bucket]; !ok {
		writeError(w, http.StatusNotFound, "notFound", "The specified bucket does not exist.")
		return
	}
	name, _ := obj["name"].(string)
	if name == "" {
		name = r.URL.Query().Get("name")
	}
	obj["name"] = name
	obj["bucket"] = bucket
	obj["kind"] = "storage#object"
	obj["size"] = strconv.Itoa(len(data))
	obj["generation"] = strconv.Itoa(f.next())
	obj["etag"] = fmt.Sprintf("etag-%d", f.seq)
	obj["updated"] = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
	f.collection("storage/"+bucket).put(name, obj)
	f.media[bucket+"/"+name] = data
	writeJSON(w, http.StatusOK, obj)
}
