package internal

const PackageVersion = "0.3.1"
