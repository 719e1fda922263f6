// Package credentials reads the API bearer token from a Kubernetes Secret,
// for deployments where the token is mounted by the platform rather than
// passed through the environment.
package credentials

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
)

// DefaultKey is the Secret data key holding the token
const DefaultKey = "token"

// SecretRef names a Secret and the data key to read
type SecretRef struct {
	Namespace string
	Name      string
	Key       string
}

// ParseSecretRef parses "namespace/name" or "namespace/name#key"
func ParseSecretRef(s string) (SecretRef, error) {
	ref := SecretRef{Key: DefaultKey}
	if i := strings.Index(s, "#"); i >= 0 {
		ref.Key = s[i+1:]
		s = s[:i]
	}
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" || ref.Key == "" {
		return SecretRef{}, fmt.Errorf("invalid secret reference %q, expected namespace/name[#key]", s)
	}
	ref.Namespace, ref.Name = parts[0], parts[1]
	return ref, nil
}

func (r SecretRef) String() string {
	return r.Namespace + "/" + r.Name + "#" + r.Key
}

// NewClientset builds a clientset from the in-cluster service account, or
// from ~/.kube/config when running outside a cluster
func NewClientset() (kubernetes.Interface, error) {
	config, err := rest.InClusterConfig()
	if err != nil {
		var kubeconfig string
		if home := homedir.HomeDir(); home != "" {
			kubeconfig = filepath.Join(home, ".kube", "config")
		}
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("failed to build config: %w", err)
		}
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}
	return clientset, nil
}

// SecretTokenSource reads a bearer token from a Secret on every call
type SecretTokenSource struct {
	client  kubernetes.Interface
	ref     SecretRef
	timeout time.Duration
}

func NewSecretTokenSource(client kubernetes.Interface, ref SecretRef) *SecretTokenSource {
	return &SecretTokenSource{client: client, ref: ref, timeout: 10 * time.Second}
}

// Token implements oauth2.TokenSource
func (s *SecretTokenSource) Token() (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	secret, err := s.client.CoreV1().Secrets(s.ref.Namespace).Get(ctx, s.ref.Name, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to read secret %s/%s: %w", s.ref.Namespace, s.ref.Name, err)
	}

	raw, ok := secret.Data[s.ref.Key]
	if !ok {
		if str, found := secret.StringData[s.ref.Key]; found {
			raw = []byte(str)
			ok = true
		}
	}
	token := strings.TrimSpace(string(raw))
	if !ok || token == "" {
		return nil, fmt.Errorf("secret %s has no %q entry", s.ref, s.ref.Key)
	}

	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

// Cached wraps src so the Secret is read once per token lifetime. Tokens
// without an expiry are reused for the life of the process.
func Cached(src oauth2.TokenSource) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, src)
}
