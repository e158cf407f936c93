package repository

import (
	stderrors "errors"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"snackswap/internal/domain/identity"
	"snackswap/pkg/errors"
)

// translateFirestoreError maps a Firestore/gRPC failure onto the application
// error kinds. AppErrors returned from inside transactions pass through.
func translateFirestoreError(err error, resource, action string) error {
	if err == nil {
		return nil
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	if ctxErr := errors.FromContext(err); ctxErr != nil {
		return ctxErr
	}

	switch status.Code(err) {
	case codes.NotFound:
		return errors.NotFound(resource, err)
	case codes.AlreadyExists:
		return errors.Conflict(resource + " already exists")
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.ResourceExhausted:
		return errors.Unavailable("Failed to "+action+", please retry", err)
	}
	return errors.Internal("Failed to "+action, err)
}

// firestoreRefID resolves a stored user/listing reference, which older
// documents may hold as a DocumentRef instead of a plain id.
func firestoreRefID(v interface{}) string {
	if ref, ok := v.(*firestore.DocumentRef); ok {
		if ref == nil {
			return ""
		}
		return ref.ID
	}
	return identity.RefID(v)
}

func firestoreRefIDs(v interface{}) []string {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(list))
	for _, item := range list {
		if id := firestoreRefID(item); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
