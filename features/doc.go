// Package features turns raw request values into the encoded feature vector the
// embedding generator was trained on.
//
// Numeric features are min-max scaled with Params; categorical labels are
// mapped to integer ids with a Dictionary. Both fail soft: a missing value, an
// unregistered feature or an unknown label encodes to zero.
//
// The order of Numeric is part of the model contract and must match the column
// order used when the generator was trained.
package features
