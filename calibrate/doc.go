// Package calibrate composes radiometric calibration graphs: digital
// numbers to top-of-atmosphere (TOA) radiance and reflectance, thermal
// brightness temperature, a dark-object subtraction approximation of
// surface reflectance, and QA-based cloud masking.
//
// All arithmetic happens on the platform. The only local work is scalar
// bookkeeping over scene metadata (rescaling gains, sun elevation).
package calibrate
