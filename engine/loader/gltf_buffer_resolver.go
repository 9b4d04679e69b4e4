package loader

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
)

// dataURIPattern matches RFC 2397 data URIs; the payload follows the first comma.
var dataURIPattern = regexp.MustCompile(`(?is)^data:.*,.*$`)

// isDataURI reports whether uri embeds its payload.
func isDataURI(uri string) bool {
	return dataURIPattern.MatchString(uri)
}

// decodeDataURI decodes a base64 data URI.
// Format: data:[<mediatype>][;base64],<data>
//
// Returns the payload and the media type between "data:" and the first ";" or ",".
func decodeDataURI(uri string) ([]byte, string, error) {
	commaIdx := strings.IndexByte(uri, ',')
	if commaIdx < 0 {
		return nil, "", fmt.Errorf("data URI has no payload")
	}
	header := uri[len("data:"):commaIdx]
	mime := header
	if i := strings.IndexByte(header, ';'); i >= 0 {
		mime = header[:i]
	}

	payload := uri[commaIdx+1:]
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// some exporters drop the padding
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, "", fmt.Errorf("failed to decode base64: %w", err)
		}
	}
	return data, mime, nil
}

// resourceFetcher fetches external URIs concurrently on a worker pool.
type resourceFetcher struct {
	fetcher Fetcher
	pool    worker.DynamicWorkerPool
}

// fetchResult is the outcome of one fetch.
type fetchResult struct {
	data []byte
	err  error
}

// fetchAll fetches every URL and waits for all of them. Results are returned in input order.
// Without a pool the URLs are fetched one after another.
func (r *resourceFetcher) fetchAll(ctx context.Context, urls []string) []fetchResult {
	results := make([]fetchResult, len(urls))
	if len(urls) == 0 {
		return results
	}
	if r.fetcher == nil {
		for i := range results {
			results[i].err = fmt.Errorf("no fetcher configured")
		}
		return results
	}
	if r.pool == nil {
		for i, u := range urls {
			results[i].data, results[i].err = r.fetcher.Fetch(ctx, u)
		}
		return results
	}

	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		idx, target := i, u
		r.pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				data, err := r.fetcher.Fetch(ctx, target)
				results[idx] = fetchResult{data: data, err: err}
				return data, err
			},
		})
	}
	wg.Wait()
	return results
}

// bufferView is a resolved glTF bufferView: a sub-slice of its buffer, never a copy.
type bufferView struct {
	buffer     int
	byteOffset int
	byteLength int

	// byteStride is 0 when the view is tightly packed.
	byteStride int

	data []byte
}

// resolveBuffers produces the bytes of every buffer: decoded data URIs, fetched external URIs
// (concurrently) or the GLB binary chunk. It returns only when every buffer is available.
func resolveBuffers(ctx context.Context, doc *gltfDocument, bin []byte, urlBase string, rf *resourceFetcher) ([][]byte, error) {
	buffers := make([][]byte, len(doc.Buffers))

	var urls []string
	var pending []int
	for i, b := range doc.Buffers {
		switch {
		case b.URI == "":
			if bin == nil {
				return nil, newLoadError(KindMissingBufferSource, nil, "buffers[%d]: no uri and no binary chunk", i)
			}
			buffers[i] = bin
		case isDataURI(b.URI):
			data, _, err := decodeDataURI(b.URI)
			if err != nil {
				return nil, newLoadError(KindInvalidAsset, err, "buffers[%d]", i)
			}
			buffers[i] = data
		default:
			urls = append(urls, joinURL(urlBase, b.URI))
			pending = append(pending, i)
		}
	}

	for j, res := range rf.fetchAll(ctx, urls) {
		i := pending[j]
		if res.err != nil {
			return nil, newLoadError(KindFetchFailure, res.err, "buffers[%d] %s", i, urls[j])
		}
		buffers[i] = res.data
	}

	for i, b := range doc.Buffers {
		if b.ByteLength > len(buffers[i]) {
			return nil, &LoadError{
				Kind:     KindInvalidAsset,
				Field:    fmt.Sprintf("buffers[%d].byteLength", i),
				Expected: fmt.Sprintf("<= %d", len(buffers[i])),
				Found:    fmt.Sprint(b.ByteLength),
			}
		}
	}
	return buffers, nil
}

// resolveBufferViews slices every bufferView out of its buffer.
func resolveBufferViews(doc *gltfDocument, buffers [][]byte) ([]bufferView, error) {
	views := make([]bufferView, len(doc.BufferViews))
	for i, bv := range doc.BufferViews {
		if bv.Buffer < 0 || bv.Buffer >= len(buffers) {
			return nil, newLoadError(KindMissingBufferSource, nil, "bufferViews[%d].buffer %d", i, bv.Buffer)
		}
		buf := buffers[bv.Buffer]
		if bv.ByteOffset < 0 || bv.ByteLength < 0 || bv.ByteOffset+bv.ByteLength > len(buf) {
			return nil, &LoadError{
				Kind:     KindInvalidAsset,
				Field:    fmt.Sprintf("bufferViews[%d]", i),
				Expected: fmt.Sprintf("byteOffset+byteLength <= %d", len(buf)),
				Found:    fmt.Sprint(bv.ByteOffset + bv.ByteLength),
			}
		}
		stride := 0
		if bv.ByteStride != nil {
			stride = *bv.ByteStride
		}
		views[i] = bufferView{
			buffer:     bv.Buffer,
			byteOffset: bv.ByteOffset,
			byteLength: bv.ByteLength,
			byteStride: stride,
			data:       buf[bv.ByteOffset : bv.ByteOffset+bv.ByteLength : bv.ByteOffset+bv.ByteLength],
		}
	}
	return views, nil
}
