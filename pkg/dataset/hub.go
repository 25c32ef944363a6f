package dataset

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/pagexml-dataset/internal/utils"
)

// DefaultHubEndpoint is the public dataset hub
const DefaultHubEndpoint = "https://huggingface.co"

// ErrNoToken is returned when no access token could be found
var ErrNoToken = errors.New("dataset: no hub access token")

// ResolveToken returns the explicit token, else HF_TOKEN, else
// HUGGING_FACE_HUB_TOKEN, else the token cached by the hub CLI login.
func ResolveToken(explicit string) (string, error) {
	if t := strings.TrimSpace(explicit); t != "" {
		return t, nil
	}
	for _, env := range []string{"HF_TOKEN", "HUGGING_FACE_HUB_TOKEN"} {
		if t := strings.TrimSpace(os.Getenv(env)); t != "" {
			return t, nil
		}
	}

	if path := cachedTokenPath(); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			if t := strings.TrimSpace(string(data)); t != "" {
				return t, nil
			}
		}
	}
	return "", fmt.Errorf("%w: pass --token, set HF_TOKEN or log in with the hub CLI", ErrNoToken)
}

func cachedTokenPath() string {
	if home := os.Getenv("HF_HOME"); home != "" {
		return filepath.Join(home, "token")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cache", "huggingface", "token")
}

// HubClient pushes local dataset folders to a dataset hub
type HubClient struct {
	endpoint string
	token    string
	http     *http.Client
	log      logrus.FieldLogger
}

// NewHubClient creates a client. An empty endpoint selects DefaultHubEndpoint.
func NewHubClient(endpoint, token string, log logrus.FieldLogger) *HubClient {
	if endpoint == "" {
		endpoint = DefaultHubEndpoint
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &HubClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		token:    token,
		http:     &http.Client{Timeout: 10 * time.Minute},
		log:      log,
	}
}

// CreateRepo creates the dataset repository. An existing repository is not an error.
func (c *HubClient) CreateRepo(ctx context.Context, repoID string, private bool) error {
	org, name, err := splitRepoID(repoID)
	if err != nil {
		return err
	}

	payload := map[string]any{
		"type":    "dataset",
		"name":    name,
		"private": private,
	}
	if org != "" {
		payload["organization"] = org
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal repo request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/api/repos/create", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		c.log.WithField("repo", repoID).Debug("Dataset repository already exists")
		return nil
	case resp.StatusCode >= 300:
		return responseError("create repository", resp)
	}
	c.log.WithFields(logrus.Fields{"repo": repoID, "private": private}).Info("Dataset repository created")
	return nil
}

type commitLine struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

type commitHeader struct {
	Summary     string `json:"summary"`
	Description string `json:"description"`
}

// UploadFolder commits every file under dir to the main branch of the
// repository, keeping relative paths. The commit body is streamed, so only
// one file is read at a time.
func (c *HubClient) UploadFolder(ctx context.Context, repoID, dir, message string) (int, error) {
	if _, _, err := splitRepoID(repoID); err != nil {
		return 0, err
	}

	files, size, err := listFiles(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to collect files from %s: %w", dir, err)
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("nothing to upload in %s", dir)
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(writeCommit(pw, dir, files, message))
	}()

	resp, err := c.do(ctx, http.MethodPost, "/api/datasets/"+repoID+"/commit/main", "application/x-ndjson", pr)
	if err != nil {
		pr.CloseWithError(err)
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return 0, responseError("commit", resp)
	}

	c.log.WithFields(logrus.Fields{
		"repo":  repoID,
		"files": len(files),
		"size":  utils.FormatFileSize(size),
	}).Info("Dataset uploaded")
	return len(files), nil
}

// listFiles returns the slash separated paths of the regular files under dir
// and their total size.
func listFiles(dir string) ([]string, int64, error) {
	var files []string
	var size int64
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		size += info.Size()
		return nil
	})
	return files, size, err
}

// writeCommit writes the NDJSON commit: a header line, then one line per
// file with its content in base64.
func writeCommit(w io.Writer, dir string, files []string, message string) error {
	bw := bufio.NewWriter(w)
	if err := json.NewEncoder(bw).Encode(commitLine{Key: "header", Value: commitHeader{Summary: message}}); err != nil {
		return err
	}
	for _, rel := range files {
		if err := writeFileLine(bw, dir, rel); err != nil {
			return fmt.Errorf("%s: %w", rel, err)
		}
	}
	return bw.Flush()
}

func writeFileLine(w *bufio.Writer, dir, rel string) error {
	f, err := os.Open(filepath.Join(dir, filepath.FromSlash(rel)))
	if err != nil {
		return err
	}
	defer f.Close()

	name, err := json.Marshal(rel)
	if err != nil {
		return err
	}
	w.WriteString(`{"key":"file","value":{"encoding":"base64","path":`)
	w.Write(name)
	w.WriteString(`,"content":"`)

	enc := base64.NewEncoder(base64.StdEncoding, w)
	if _, err := io.Copy(enc, f); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err = w.WriteString("\"}}\n")
	return err
}

// Push creates the repository if needed and uploads dir
func (c *HubClient) Push(ctx context.Context, repoID, dir string, private bool) error {
	if err := c.CreateRepo(ctx, repoID, private); err != nil {
		return err
	}
	_, err := c.UploadFolder(ctx, repoID, dir, "Upload PAGE XML dataset")
	return err
}

func (c *HubClient) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", "pagexml-dataset/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hub request failed: %w", err)
	}
	return resp, nil
}

func responseError(action string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("hub %s failed: HTTP %d: %s", action, resp.StatusCode, strings.TrimSpace(string(msg)))
}

func splitRepoID(repoID string) (org, name string, err error) {
	parts := strings.Split(repoID, "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		return "", parts[0], nil
	case len(parts) == 2 && parts[0] != "" && parts[1] != "":
		return parts[0], parts[1], nil
	}
	return "", "", fmt.Errorf("invalid repo id %q, expected <owner>/<name>", repoID)
}
