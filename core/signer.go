package core

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// SignParams produces the storage provider's request signature: parameters
// serialized in sorted key order as "k=v" joined by "&", the secret appended,
// the whole digested with SHA-1 and hex encoded. Deterministic for identical
// inputs.
func SignParams(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for key := range params {
		if strings.TrimSpace(key) == "" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, key+"="+params[key])
	}

	digest := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(digest[:])
}

// SignUpload issues a signed upload grant for a folder inside the allow-list.
// The timestamp is the current unix second, so two grants for the same folder
// within one second carry the same signature; that matches the provider's
// verification window. The signature covers only timestamp and folder.
func (s *Service) SignUpload(ctx context.Context, folder string, resourceType string) (SignedUploadGrant, error) {
	if s == nil {
		return SignedUploadGrant{}, fmt.Errorf("core: service is nil")
	}

	folder = strings.TrimSpace(folder)
	if folder == "" {
		folder = s.config.Uploads.DefaultFolder
	}
	normalizedType, ok := normalizeResourceType(resourceType)
	if !ok {
		return SignedUploadGrant{}, s.mapError(errBadInput(fmt.Sprintf("core: unsupported resource type %q", resourceType)))
	}
	if !s.folderAllowed(folder) {
		err := ErrInvalidFolder(folder)
		s.logWarn(ctx, "upload signing rejected", map[string]any{"folder": folder})
		return SignedUploadGrant{}, err
	}

	timestamp := s.now().Unix()
	signature := SignParams(map[string]string{
		"timestamp": fmt.Sprintf("%d", timestamp),
		"folder":    folder,
	}, s.config.Uploads.APISecret)

	return SignedUploadGrant{
		Signature:    signature,
		Timestamp:    timestamp,
		CloudName:    s.config.Uploads.CloudName,
		APIKey:       s.config.Uploads.APIKey,
		Folder:       folder,
		ResourceType: normalizedType,
	}, nil
}

func (s *Service) folderAllowed(folder string) bool {
	for _, prefix := range s.config.Uploads.AllowedFolders {
		prefix = strings.TrimSpace(prefix)
		if prefix == "" {
			continue
		}
		if strings.HasPrefix(folder, prefix) {
			return true
		}
	}
	return false
}

// DestroyAsset deletes a stored asset through the storage capability. The
// provider treats a missing asset as success and its result document is
// returned as-is.
func (s *Service) DestroyAsset(ctx context.Context, publicID string) (map[string]any, error) {
	if s == nil {
		return nil, fmt.Errorf("core: service is nil")
	}
	if s.storage == nil {
		return nil, s.mapError(fmt.Errorf("core: storage api is not configured"))
	}
	publicID = strings.TrimSpace(publicID)
	if publicID == "" {
		return nil, s.mapError(errBadInput("core: asset public id is required"))
	}

	startedAt := s.now()
	result, err := s.storage.DestroyAsset(ctx, publicID)
	if err != nil {
		wrapped := ErrDownstreamFailure("cloudinary", err)
		s.observeOperation(ctx, startedAt, "asset_destroy", wrapped, map[string]any{"public_id": publicID})
		return nil, wrapped
	}
	s.observeOperation(ctx, startedAt, "asset_destroy", nil, map[string]any{"public_id": publicID})
	return result, nil
}
